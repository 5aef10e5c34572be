package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"codeberg.org/mutker/powerbridge/internal/errors"
)

const (
	keySensor1 = "sensor_1"
	keySensor2 = "sensor_2"

	fieldVoltage = "voltage"
	fieldCurrent = "current"
	fieldPower   = "power"
)

// Reading is one sensor's sub-record: volts, milliamps and milliwatts.
type Reading struct {
	Voltage float64 `json:"voltage"`
	Current float64 `json:"current"`
	Power   float64 `json:"power"`
}

// Frame is one parsed line carrying both sensors.
type Frame struct {
	Sensor1 Reading `json:"sensor_1"`
	Sensor2 Reading `json:"sensor_2"`
}

// TotalPower returns the combined instantaneous power in milliwatts.
func (f Frame) TotalPower() float64 {
	return f.Sensor1.Power + f.Sensor2.Power
}

// FieldError identifies the value that failed numeric conversion.
type FieldError struct {
	Sensor string
	Field  string
	Raw    string
}

func (f FieldError) String() string {
	return fmt.Sprintf("%s.%s=%s", f.Sensor, f.Field, f.Raw)
}

// Parse decodes a line into a Frame. Missing voltage, current or power
// fields default to zero; sensors may omit values that did not change.
func Parse(line string) (Frame, error) {
	errFactory := errors.New()

	var root map[string]json.RawMessage
	if err := json.Unmarshal([]byte(line), &root); err != nil {
		return Frame{}, errFactory.Wrap(ErrMalformedSyntax, err)
	}
	// a bare null decodes into a nil map
	if root == nil {
		return Frame{}, errFactory.WithData(ErrMalformedSyntax, "not an object")
	}

	s1, err := parseReading(root, keySensor1)
	if err != nil {
		return Frame{}, err
	}
	s2, err := parseReading(root, keySensor2)
	if err != nil {
		return Frame{}, err
	}

	return Frame{Sensor1: s1, Sensor2: s2}, nil
}

func parseReading(root map[string]json.RawMessage, sensor string) (Reading, error) {
	errFactory := errors.New()

	raw, ok := root[sensor]
	if !ok {
		return Reading{}, errFactory.WithData(ErrMalformedSyntax, "missing "+sensor)
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil || fields == nil {
		return Reading{}, errFactory.WithData(ErrMalformedSyntax, sensor+" is not an object")
	}

	var r Reading
	for _, f := range []struct {
		name string
		dst  *float64
	}{
		{fieldVoltage, &r.Voltage},
		{fieldCurrent, &r.Current},
		{fieldPower, &r.Power},
	} {
		v, present := fields[f.name]
		if !present {
			continue
		}
		n, err := toFloat(v)
		if err != nil {
			return Reading{}, errFactory.WithData(ErrInvalidField, FieldError{
				Sensor: sensor,
				Field:  f.name,
				Raw:    string(v),
			})
		}
		*f.dst = n
	}

	return r, nil
}

// toFloat accepts a JSON number, a numeric string or a boolean.
func toFloat(raw json.RawMessage) (float64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0, fmt.Errorf("empty value")
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		n, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, err
		}
		return finite(n)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return 0, err
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case 'n', '{', '[':
		return 0, fmt.Errorf("not a number: %s", raw)
	default:
		var n float64
		if err := json.Unmarshal(raw, &n); err != nil {
			return 0, err
		}
		return finite(n)
	}
}

// finite rejects NaN and infinities, which would poison the energy totals
// and cannot be encoded as JSON.
func finite(n float64) (float64, error) {
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, fmt.Errorf("not a finite number: %v", n)
	}
	return n, nil
}
