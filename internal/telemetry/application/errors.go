package application

import "errors"

// ErrMissingDeviceID is returned for messages without a device_id.
var ErrMissingDeviceID = errors.New("telemetry: no device_id in message")
