package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cast"

	"github.com/AltairaLabs/run-tools-mcp/internal/config"
)

// Validate checks raw against shape and returns the coerced value. Keys not
// declared by the shape are dropped.
func Validate(shape Shape, raw map[string]any) Result {
	var issues []Issue
	value := validateObject(shape.Fields, raw, "", &issues)
	if len(issues) > 0 {
		return Result{Err: &ValidationError{Issues: issues}}
	}
	return Result{Value: value}
}

func validateObject(fields []Field, raw map[string]any, prefix string, issues *[]Issue) map[string]any {
	out := make(map[string]any, len(fields))
	for _, field := range fields {
		path := field.Name
		if prefix != "" {
			path = prefix + "." + field.Name
		}

		v, present := raw[field.Name]
		if !present {
			if field.Required {
				*issues = append(*issues, Issue{Path: path, Message: "Required"})
			}
			continue
		}

		coerced, err := coerce(field, v, path, issues)
		if err != nil {
			*issues = append(*issues, Issue{Path: path, Message: err.Error()})
			continue
		}
		if coerced == nil {
			// nested object issues already recorded
			continue
		}

		if field.Transform != nil {
			coerced, err = field.Transform(coerced)
			if err != nil {
				*issues = append(*issues, Issue{Path: path, Message: err.Error()})
				continue
			}
		}
		out[field.Name] = coerced
	}
	return out
}

func coerce(field Field, v any, path string, issues *[]Issue) (any, error) {
	switch field.Kind {
	case String:
		s, ok := v.(string)
		if !ok {
			return nil, expected("string", v)
		}
		return s, nil

	case Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, expected("boolean", v)
		}
		return b, nil

	case NumberOrDate:
		return coerceTime(v)

	case StringOrStrings:
		return coerceStrings(v)

	case Enum:
		s, ok := v.(string)
		if !ok {
			return nil, expected("string", v)
		}
		for _, allowed := range field.Values {
			if s == allowed {
				return s, nil
			}
		}
		return nil, fmt.Errorf("Invalid enum value. Expected '%s', received '%s'",
			strings.Join(field.Values, "' | '"), s)

	case Object:
		m, ok := v.(map[string]any)
		if !ok {
			return nil, expected("object", v)
		}
		before := len(*issues)
		obj := validateObject(field.Fields, m, path, issues)
		if len(*issues) > before {
			return nil, nil
		}
		return obj, nil

	default:
		return nil, fmt.Errorf("unsupported field kind %s", field.Kind)
	}
}

func coerceTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		parsed, err := cast.ToTimeE(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("Invalid date: %q", t)
		}
		return parsed, nil
	case float64, float32, int, int32, int64, json.Number:
		ms, err := cast.ToInt64E(t)
		if err != nil {
			return time.Time{}, fmt.Errorf("Invalid number: %v", t)
		}
		return time.UnixMilli(ms).UTC(), nil
	default:
		return time.Time{}, expected("date or number", v)
	}
}

func coerceStrings(v any) ([]string, error) {
	switch t := v.(type) {
	case string:
		return []string{t}, nil
	case []string:
		return t, nil
	case []any:
		out := make([]string, 0, len(t))
		for i, item := range t {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("item %d: %w", i, expected("string", item))
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, expected("string or array of strings", v)
	}
}

func expected(want string, got any) error {
	return fmt.Errorf("Expected %s, received %s", want, typeName(got))
}

func typeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64, float32, int, int32, int64, json.Number:
		return "number"
	case []any, []string:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}

// ErrInvalidJSON is the failure reason of ParseJSON
var ErrInvalidJSON = errors.New(config.ErrInvalidPayload)

// ParseJSON is a TransformFunc for String fields that must contain JSON. The
// decoder's own error is never surfaced.
func ParseJSON(value any) (any, error) {
	s, ok := value.(string)
	if !ok {
		return nil, ErrInvalidJSON
	}
	var parsed any
	if err := json.Unmarshal([]byte(s), &parsed); err != nil {
		return nil, ErrInvalidJSON
	}
	return parsed, nil
}
