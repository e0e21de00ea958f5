// Package schema validates and coerces tool arguments against a declared shape.
//
// Validation is a pure function of (shape, input): it never performs I/O and
// returns either the coerced value or the list of issues that made the input
// invalid.
package schema

import (
	"fmt"
	"strings"
)

// Kind is the type of a declared field
type Kind int

const (
	// String accepts a JSON string
	String Kind = iota
	// Boolean accepts a JSON boolean
	Boolean
	// NumberOrDate accepts an epoch-milliseconds number or a date string and
	// coerces both to time.Time
	NumberOrDate
	// StringOrStrings accepts a string or an array of strings and coerces to []string
	StringOrStrings
	// Enum accepts one of Field.Values
	Enum
	// Object accepts a nested object described by Field.Fields
	Object
)

func (k Kind) String() string {
	switch k {
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case NumberOrDate:
		return "date or number"
	case StringOrStrings:
		return "string or array of strings"
	case Enum:
		return "enum"
	case Object:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TransformFunc post-processes a coerced value. Returning an error fails the
// field with the error's message.
type TransformFunc func(value any) (any, error)

// Field declares one named input
type Field struct {
	Name        string
	Kind        Kind
	Required    bool
	Description string
	// Values lists the accepted values of an Enum field
	Values []string
	// Fields describes the members of an Object field
	Fields []Field
	// Transform runs after kind coercion succeeds
	Transform TransformFunc
}

// Shape is the declared input of a tool
type Shape struct {
	Fields []Field
}

// NewShape builds a shape from fields
func NewShape(fields ...Field) Shape {
	return Shape{Fields: fields}
}

// Issue describes why one field is invalid
type Issue struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// ValidationError lists every invalid field of an input
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return "invalid arguments: " + strings.Join(parts, "; ")
}

// Result is either a coerced value or a validation failure
type Result struct {
	Value map[string]any
	Err   *ValidationError
}

// OK reports whether validation succeeded
func (r Result) OK() bool {
	return r.Err == nil
}
