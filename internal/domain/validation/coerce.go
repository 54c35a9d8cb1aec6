package validation

import (
	"errors"
	"math"
	"strconv"
	"strings"
)

// ErrNotANumber is returned when numeric input cannot be parsed. Callers
// revert the field instead of persisting the value.
var ErrNotANumber = errors.New("input is not a number")

// ErrNotABoolean is returned when yes/no input cannot be parsed.
var ErrNotABoolean = errors.New("input is not a yes/no answer")

// CoerceInput converts raw form input into the value stored for field.
// Empty numeric and boolean input becomes nil, never NaN.
func CoerceInput(field, raw string) (any, error) {
	spec, ok := Lookup(field)
	if !ok {
		return raw, nil
	}

	trimmed := strings.TrimSpace(raw)
	switch spec.Kind {
	case KindNumber:
		if trimmed == "" {
			return nil, nil
		}
		f, err := strconv.ParseFloat(trimmed, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, ErrNotANumber
		}
		return f, nil
	case KindBoolean:
		switch strings.ToLower(trimmed) {
		case "":
			return nil, nil
		case "true", "yes", "y", "1":
			return true, nil
		case "false", "no", "n", "0":
			return false, nil
		}
		return nil, ErrNotABoolean
	case KindEnum:
		if trimmed == "" {
			return nil, nil
		}
		return strings.ToLower(trimmed), nil
	default:
		return raw, nil
	}
}
