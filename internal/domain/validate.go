package domain

import (
	"encoding/json"
	"strconv"
)

// ValidationCause enumerates why a payload was rejected, so callers can
// branch on the kind of failure instead of parsing the message.
type ValidationCause string

const (
	// CauseBadPayload means the payload was not a JSON object at all, or an
	// order_items entry was not one.
	CauseBadPayload ValidationCause = "bad_payload"
	// CauseMissingField means a required key was absent. Field names which.
	CauseMissingField ValidationCause = "missing_field"
	// CauseInvalidField means a key was present but its value could not be
	// coerced to the expected type. Field names which.
	CauseInvalidField ValidationCause = "invalid_field"
)

// ValidationError reports malformed or incomplete input to Deserialize.
// It is always recoverable by the caller and maps to a client error at the
// HTTP boundary.
type ValidationError struct {
	Cause ValidationCause
	Field string
}

func (e *ValidationError) Error() string {
	switch e.Cause {
	case CauseMissingField:
		return "Invalid order: missing " + e.Field
	case CauseInvalidField:
		return "Invalid order: invalid " + e.Field
	default:
		return "Invalid order: body of request contained bad or no data"
	}
}

func errBadPayload() *ValidationError {
	return &ValidationError{Cause: CauseBadPayload}
}

func errMissing(field string) *ValidationError {
	return &ValidationError{Cause: CauseMissingField, Field: field}
}

func errInvalid(field string) *ValidationError {
	return &ValidationError{Cause: CauseInvalidField, Field: field}
}

func requireString(payload map[string]any, field string) (string, error) {
	raw, ok := payload[field]
	if !ok {
		return "", errMissing(field)
	}
	s, ok := raw.(string)
	if !ok {
		return "", errInvalid(field)
	}
	return s, nil
}

func requireInt(payload map[string]any, field string) (int, error) {
	f, err := requireFloat(payload, field)
	if err != nil {
		return 0, err
	}
	return int(f), nil
}

// requireFloat accepts the numeric shapes a decoded JSON body can carry:
// float64 from encoding/json, json.Number when UseNumber was set, and
// numeric strings, which some clients have always sent for price.
func requireFloat(payload map[string]any, field string) (float64, error) {
	raw, ok := payload[field]
	if !ok {
		return 0, errMissing(field)
	}

	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return 0, errInvalid(field)
		}
		return f, nil
	case string:
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return 0, errInvalid(field)
		}
		return f, nil
	default:
		return 0, errInvalid(field)
	}
}
