// Package pid keeps one bridge per serial device by holding a PID file
// named after the device.
package pid

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"codeberg.org/mutker/powerbridge/internal/errors"
)

const (
	filePrefix = "powerbridge"
	fileExt    = ".pid"
	filePerm   = 0o600
)

// Path returns the PID file location for device inside dir. An empty dir
// means the OS temp directory.
func Path(dir, device string) string {
	if dir == "" {
		dir = os.TempDir()
	}
	name := strings.Trim(strings.ReplaceAll(device, string(filepath.Separator), "-"), "-")
	if name == "" {
		return filepath.Join(dir, filePrefix+fileExt)
	}
	return filepath.Join(dir, filePrefix+"-"+name+fileExt)
}

// Write records the current process ID for device and returns the file path.
// A file naming a live process yields ErrAlreadyRunning; a stale or
// unreadable one is replaced.
func Write(dir, device string) (string, error) {
	errFactory := errors.New()
	path := Path(dir, device)

	if data, err := os.ReadFile(path); err == nil {
		if pid, err := strconv.Atoi(strings.TrimSpace(string(data))); err == nil && alive(pid) {
			return "", errFactory.WithData(errors.ErrAlreadyRunning, pid)
		}
	} else if !os.IsNotExist(err) {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), filePerm); err != nil {
		return "", errFactory.Wrap(errors.ErrInternal, err)
	}

	return path, nil
}

// Remove removes the PID file. A missing file is not an error.
func Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return errors.New().Wrap(errors.ErrInternal, err)
	}
	return nil
}

func alive(pid int) bool {
	if pid <= 0 {
		return false
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return process.Signal(syscall.Signal(0)) == nil
}
