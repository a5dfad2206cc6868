package lighting

import "errors"

// Domain errors for the lighting package.
var (
	// ErrConfigNotFound is returned when no configuration row has been stored yet.
	ErrConfigNotFound = errors.New("lighting: config not found")

	// ErrNoReadings is returned when the sensor log is empty.
	ErrNoReadings = errors.New("lighting: no sensor readings")

	// ErrMalformedPayload is returned when a request body is not a JSON object.
	ErrMalformedPayload = errors.New("lighting: malformed payload")

	// ErrInvalidStorageMode is returned for an unknown config storage mode.
	ErrInvalidStorageMode = errors.New("lighting: invalid storage mode")
)
