// Package errors provides structured error handling for the MCP SDK.
// Every failure surfaced by the SDK implements MCPError, carrying a JSON-RPC
// error code, a category for programmatic classification, and optional
// structured data and context.
package errors

import (
	"fmt"
)

// Category classifies an error for programmatic handling.
type Category string

const (
	CategoryTransport Category = "transport"
	CategoryProtocol  Category = "protocol"
	CategoryTimeout   Category = "timeout"
	CategoryState     Category = "state"
	CategoryRegistry  Category = "registry"
	CategoryVersion   Category = "version"
	CategoryInternal  Category = "internal"
	CategoryCancelled Category = "cancelled"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where an error occurred.
type Context struct {
	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`
	Method    string `json:"method,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// MCPError is the interface implemented by all SDK errors.
type MCPError interface {
	error

	// Code returns the JSON-RPC error code.
	Code() int

	// Category returns the error category for classification.
	Category() Category

	// Severity returns the error severity level.
	Severity() Severity

	// Data returns structured error data, if any.
	Data() interface{}

	// Context returns the error context, if any.
	Context() *Context

	// WithContext returns a copy of the error with the given context.
	WithContext(ctx *Context) MCPError

	// WithDetail returns a copy of the error with an extra detail string
	// appended to its message.
	WithDetail(detail string) MCPError

	// WithData returns a copy of the error carrying structured data.
	WithData(data interface{}) MCPError

	// WithSeverity returns a copy of the error at the given severity.
	WithSeverity(severity Severity) MCPError

	// Unwrap returns the underlying cause, if any.
	Unwrap() error
}

type baseError struct {
	code     int
	message  string
	detail   string
	data     interface{}
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	msg := e.message
	if e.detail != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.detail)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Data() interface{}  { return e.data }
func (e *baseError) Context() *Context  { return e.context }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithContext(ctx *Context) MCPError {
	dup := *e
	dup.context = ctx
	return &dup
}

func (e *baseError) WithDetail(detail string) MCPError {
	dup := *e
	if dup.detail != "" {
		dup.detail = fmt.Sprintf("%s; %s", dup.detail, detail)
	} else {
		dup.detail = detail
	}
	return &dup
}

func (e *baseError) WithData(data interface{}) MCPError {
	dup := *e
	dup.data = data
	return &dup
}

func (e *baseError) WithSeverity(severity Severity) MCPError {
	dup := *e
	dup.severity = severity
	return &dup
}

// New creates a new MCPError at SeverityError.
func New(code int, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category, severity: SeverityError}
}

// Newf creates a new MCPError at SeverityError with a formatted message.
func Newf(code int, category Category, format string, args ...interface{}) MCPError {
	return &baseError{code: code, message: fmt.Sprintf(format, args...), category: category, severity: SeverityError}
}

// Wrap wraps an existing error as an MCPError at SeverityError.
func Wrap(err error, code int, message string, category Category) MCPError {
	return &baseError{code: code, message: message, category: category, severity: SeverityError, cause: err}
}

// As extracts an MCPError from err, reporting whether it is one.
func As(err error) (MCPError, bool) {
	if err == nil {
		return nil, false
	}
	if mcpErr, ok := err.(MCPError); ok {
		return mcpErr, true
	}
	return nil, false
}

// IsCategory reports whether err is an MCPError of the given category.
func IsCategory(err error, category Category) bool {
	if mcpErr, ok := As(err); ok {
		return mcpErr.Category() == category
	}
	return false
}

// IsCode reports whether err is an MCPError with the given code.
func IsCode(err error, code int) bool {
	if mcpErr, ok := As(err); ok {
		return mcpErr.Code() == code
	}
	return false
}
