package lighting

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Field validation messages returned to clients.
const (
	MsgLightValueInvalid = "Light value must be a positive integer"
	MsgLampStatusInvalid = "Lamp status must be a boolean"
	MsgThresholdInvalid  = "Threshold must be a positive integer"
	MsgManualModeInvalid = "Manual mode must be a boolean"
)

// FieldError describes a problem with a single request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError collects field problems found in one payload.
type ValidationError struct {
	Fields []FieldError
}

// Add records a problem with field.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// Err returns e if any field problems were recorded, nil otherwise.
func (e *ValidationError) Err() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Fields))
	for i, f := range e.Fields {
		parts[i] = f.Field + ": " + f.Message
	}
	return "lighting: validation failed: " + strings.Join(parts, "; ")
}

// ParseReading decodes and validates a device reading payload of the form
// {"lightValue": <int >= 0>, "lampStatus": <bool>}. Unknown fields are ignored.
func ParseReading(body []byte) (Reading, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return Reading{}, err
	}

	var (
		r    Reading
		verr ValidationError
	)

	if v, ok := intField(fields, "lightValue"); ok {
		r.LightValue = v
	} else {
		verr.Add("lightValue", MsgLightValueInvalid)
	}
	if v, ok := boolField(fields, "lampStatus"); ok {
		r.LampStatus = v
	} else {
		verr.Add("lampStatus", MsgLampStatusInvalid)
	}

	if err := verr.Err(); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// ParseConfigPatch decodes and validates a partial configuration update.
// Absent fields stay nil. Present fields must have the right type; null is
// rejected rather than treated as absent.
func ParseConfigPatch(body []byte) (ConfigPatch, error) {
	fields, err := decodeObject(body)
	if err != nil {
		return ConfigPatch{}, err
	}

	var (
		p    ConfigPatch
		verr ValidationError
	)

	if _, present := fields["threshold"]; present {
		if v, ok := intField(fields, "threshold"); ok {
			p.Threshold = &v
		} else {
			verr.Add("threshold", MsgThresholdInvalid)
		}
	}
	if _, present := fields["manualMode"]; present {
		if v, ok := boolField(fields, "manualMode"); ok {
			p.ManualMode = &v
		} else {
			verr.Add("manualMode", MsgManualModeInvalid)
		}
	}
	if _, present := fields["lampStatus"]; present {
		if v, ok := boolField(fields, "lampStatus"); ok {
			p.LampStatus = &v
		} else {
			verr.Add("lampStatus", MsgLampStatusInvalid)
		}
	}

	if err := verr.Err(); err != nil {
		return ConfigPatch{}, err
	}
	return p, nil
}

func decodeObject(body []byte) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedPayload, err)
	}
	return fields, nil
}

// intField accepts only JSON numbers holding a non-negative integer that
// fits in 32 bits. Strings, fractions and exponents are rejected.
func intField(fields map[string]json.RawMessage, name string) (int, bool) {
	raw, ok := fields[name]
	if !ok {
		return 0, false
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	num, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	n, err := strconv.ParseInt(num.String(), 10, 64)
	if err != nil || n < 0 || n > math.MaxInt32 {
		return 0, false
	}
	return int(n), true
}

func boolField(fields map[string]json.RawMessage, name string) (bool, bool) {
	raw, ok := fields[name]
	if !ok {
		return false, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}
