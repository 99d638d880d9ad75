// Package htmerr provides the structured error type returned by htmcore.
// Errors carry a stable code, a category, context values and an optional cause.
package htmerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Category classifies errors for consistent handling.
type Category string

const (
	CategoryConfig     Category = "config"     // invalid or inconsistent parameters
	CategoryValidation Category = "validation" // per-call input validation
	CategoryCapacity   Category = "capacity"   // indexed access beyond configured limits
	CategoryIO         Category = "io"         // reading or writing configuration files
)

// Error codes.
const (
	CodeInvalidConfig  = "invalid_config"
	CodeInvalidColumns = "invalid_columns"
	CodeInvalidInputs  = "invalid_inputs"
	CodeInputMismatch  = "input_mismatch"
	CodeOutOfRange     = "out_of_range"
	CodeConfigIO       = "config_io"
)

// Sentinels for errors.Is. Matching is by code only.
var (
	ErrInvalidConfig  = &Error{Code: CodeInvalidConfig, Category: CategoryConfig}
	ErrInvalidColumns = &Error{Code: CodeInvalidColumns, Category: CategoryConfig}
	ErrInvalidInputs  = &Error{Code: CodeInvalidInputs, Category: CategoryConfig}
	ErrInputMismatch  = &Error{Code: CodeInputMismatch, Category: CategoryValidation}
	ErrOutOfRange     = &Error{Code: CodeOutOfRange, Category: CategoryCapacity}
	ErrConfigIO       = &Error{Code: CodeConfigIO, Category: CategoryIO}
)

// Error is a structured error. It supports errors.Is (by Code) and errors.As.
type Error struct {
	Code     string
	Category Category
	Message  string
	Context  map[string]any
	Cause    error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is reports whether target is an *Error with the same Code.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds a key/value pair and returns e for chaining.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// ContextString renders the context as sorted key=value pairs.
func (e *Error) ContextString() string {
	if len(e.Context) == 0 {
		return ""
	}
	keys := make([]string, 0, len(e.Context))
	for k := range e.Context {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = fmt.Sprintf("%s=%v", k, e.Context[k])
	}
	return strings.Join(parts, ", ")
}

// New creates an Error.
func New(code string, category Category, message string) *Error {
	return &Error{Code: code, Category: category, Message: message}
}

// Newf creates an Error with a formatted message.
func Newf(code string, category Category, format string, args ...any) *Error {
	return New(code, category, fmt.Sprintf(format, args...))
}

// Wrap wraps err with an Error.
func Wrap(err error, code string, category Category, message string) *Error {
	e := New(code, category, message)
	e.Cause = err
	return e
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// IsCategory reports whether err's chain holds an *Error of the given category.
func IsCategory(err error, category Category) bool {
	if e, ok := As(err); ok {
		return e.Category == category
	}
	return false
}
