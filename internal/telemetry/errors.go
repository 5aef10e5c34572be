package telemetry

import "codeberg.org/mutker/powerbridge/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrorCode("telemetry_invalid_config")

	// Publish Errors
	ErrEncodeFailed     = errors.ErrorCode("telemetry_encode_failed")
	ErrPublishNetwork   = errors.ErrorCode("publish_network_failed")
	ErrPublishTimeout   = errors.ErrorCode("publish_timeout")
	ErrPublishBadStatus = errors.ErrorCode("publish_bad_status")

	// Broker Errors
	ErrBrokerConnect = errors.ErrorCode("telemetry_broker_connect_failed")
	ErrBrokerPublish = errors.ErrorCode("telemetry_broker_publish_failed")

	// Cache Errors
	ErrCacheConnect = errors.ErrorCode("telemetry_cache_connect_failed")
	ErrCacheWrite   = errors.ErrorCode("telemetry_cache_write_failed")
)
