// Package eventerr defines the error kinds returned by the publishing paths so callers can
// branch on authentication, publish, and schema resolution failures with errors.As.
package eventerr

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Kind classifies a failure.
type Kind int

const (
	KindUnknown Kind = iota
	KindAuthentication
	KindPublish
	KindSchemaResolution
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindPublish:
		return "publish"
	case KindSchemaResolution:
		return "schema_resolution"
	default:
		return "unknown"
	}
}

// Error is a classified failure. StatusCode and Status are set for HTTP failures; Err holds the
// underlying cause (for gRPC failures, the status error).
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Status     string
	Err        error
}

func (e *Error) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("%s failed: %s (%d): %v", e.Op, e.Status, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s failed: %s (%d)", e.Op, e.Status, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
	default:
		return e.Op + " failed"
	}
}

func (e *Error) Unwrap() error { return e.Err }

// Authentication returns a KindAuthentication error.
func Authentication(op string, statusCode int, status string, err error) *Error {
	return newError(KindAuthentication, op, statusCode, status, err)
}

// Publish returns a KindPublish error.
func Publish(op string, statusCode int, status string, err error) *Error {
	return newError(KindPublish, op, statusCode, status, err)
}

// SchemaResolution returns a KindSchemaResolution error.
func SchemaResolution(op string, err error) *Error {
	return newError(KindSchemaResolution, op, 0, "", err)
}

func newError(kind Kind, op string, statusCode int, status string, err error) *Error {
	if statusCode != 0 && status == "" {
		status = http.StatusText(statusCode)
	}
	return &Error{Kind: kind, Op: op, StatusCode: statusCode, Status: status, Err: err}
}

// StatusText returns the reason phrase of resp ("Unauthorized" for "401 Unauthorized"),
// falling back to the standard text for the code.
func StatusText(resp *http.Response) string {
	if resp == nil {
		return ""
	}
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		return http.StatusText(resp.StatusCode)
	}
	return text
}

// KindOf returns the Kind of the first *Error in err's chain, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

func IsAuthentication(err error) bool   { return KindOf(err) == KindAuthentication }
func IsPublish(err error) bool          { return KindOf(err) == KindPublish }
func IsSchemaResolution(err error) bool { return KindOf(err) == KindSchemaResolution }
