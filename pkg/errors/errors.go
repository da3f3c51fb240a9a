// Package errors defines common error types used throughout the Feedly API wrapper.
package errors

import (
	"fmt"
	"net/http"
	"strings"
)

// ConfigError indicates a problem with the client configuration or with
// caller-supplied arguments that were rejected before any request was sent.
type ConfigError struct {
	// Field contains the name of the configuration field or argument that caused the error
	Field string
	// Message contains the detailed error message
	Message string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config error in field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("config error: %s", e.Message)
}

// AuthError indicates that the token endpoint rejected an authorization-code
// exchange or a refresh. The caller has to restart the authorization flow.
type AuthError struct {
	// Operation is "exchange" or "refresh"
	Operation string
	// StatusCode is the HTTP status code (if from an HTTP response)
	StatusCode int
	// Message contains the detailed error message
	Message string
	// Body contains the raw response body (if available)
	Body string
	// Err contains the underlying error if available
	Err error
}

func (e *AuthError) Error() string {
	var parts []string

	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status code %d", e.StatusCode))
	}
	if e.Body != "" {
		parts = append(parts, fmt.Sprintf("body: %q", e.Body))
	}
	if e.Message != "" {
		parts = append(parts, e.Message)
	}
	if e.Err != nil {
		parts = append(parts, fmt.Sprintf("err: %v", e.Err))
	}

	prefix := "auth error"
	if e.Operation != "" {
		prefix = "auth error during " + e.Operation
	}
	if len(parts) == 0 {
		return prefix
	}
	return prefix + ": " + strings.Join(parts, ", ")
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// RequestError indicates that an authenticated request did not end in a 200
// response, either because the transport failed (Err is set) or because the
// service answered with another status after the renewal retry was spent.
type RequestError struct {
	// Method is the HTTP verb of the failed request
	Method string
	// URL is the URL that was being accessed
	URL string
	// StatusCode is the final HTTP status code, zero on transport failure
	StatusCode int
	// Header holds the final response headers
	Header http.Header
	// Body contains the raw final response body
	Body []byte
	// Err contains the underlying transport error if available
	Err error
}

func (e *RequestError) Error() string {
	var msg string
	switch {
	case e.Err != nil:
		msg = e.Err.Error()
	case e.StatusCode != 0:
		msg = fmt.Sprintf("unexpected status %d", e.StatusCode)
		if len(e.Body) > 0 {
			msg += fmt.Sprintf(", body: %q", truncate(string(e.Body), 200))
		}
	default:
		msg = "request failed"
	}

	if e.Method != "" && e.URL != "" {
		return fmt.Sprintf("request error during %s %s: %s", e.Method, e.URL, msg)
	}
	return fmt.Sprintf("request error: %s", msg)
}

func (e *RequestError) Unwrap() error {
	return e.Err
}

// ParseError indicates that a response body could not be decoded into the
// structure an operation expects.
type ParseError struct {
	// Operation is the name of the API operation where parsing failed
	Operation string
	// Message contains the detailed error message
	Message string
	// Err contains the underlying error if available
	Err error
}

func (e *ParseError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}

	if e.Operation != "" {
		return fmt.Sprintf("parse error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("parse error: %s", msg)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ConsistencyError reports that two endpoints queried for one operation
// returned snapshots that disagree, e.g. an unread count for a feed that is
// missing from the subscription list.
type ConsistencyError struct {
	// Operation is the name of the operation that joined the snapshots
	Operation string
	// ID is the identifier present in one snapshot but not the other
	ID string
	// Message contains the detailed error message
	Message string
}

func (e *ConsistencyError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "inconsistent snapshots"
	}
	if e.ID != "" {
		msg = fmt.Sprintf("%s: %s", msg, e.ID)
	}
	if e.Operation != "" {
		return fmt.Sprintf("consistency error during %s: %s", e.Operation, msg)
	}
	return fmt.Sprintf("consistency error: %s", msg)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
