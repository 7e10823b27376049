// Package errs defines the error taxonomy shared by the report pipeline.
package errs

import (
	"fmt"
	"strings"
)

// ConfigurationError reports required settings that are missing.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("missing required configuration: %s", strings.Join(e.Missing, ", "))
}

// TransportError is a failure to obtain a usable HTTP response: network
// errors, timeouts, non-2xx statuses and bodies that are not JSON.
type TransportError struct {
	Target string
	Status int // 0 when no response was received
	Body   string
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e.Status != 0 && e.Body != "":
		return fmt.Sprintf("request to %s failed: status %d: %s", e.Target, e.Status, e.Body)
	case e.Status != 0:
		return fmt.Sprintf("request to %s failed: status %d", e.Target, e.Status)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.Target, e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// GraphQLError is one entry of a GraphQL response's "errors" array.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

// RemoteError is a well-formed response that the remote service marked as
// failed.
type RemoteError struct {
	Target        string
	Message       string
	GraphQLErrors []GraphQLError
}

func (e *RemoteError) Error() string {
	if len(e.GraphQLErrors) > 0 {
		return fmt.Sprintf("%s: %s: %s", e.Target, e.Message, e.UserDescription())
	}
	return fmt.Sprintf("%s: %s", e.Target, e.Message)
}

// UserDescription is a short message suitable for showing on a diagnostics view.
func (e *RemoteError) UserDescription() string {
	if len(e.GraphQLErrors) == 0 {
		return e.Message
	}
	msgs := make([]string, len(e.GraphQLErrors))
	for i, ge := range e.GraphQLErrors {
		msgs[i] = ge.Message
	}
	return strings.Join(msgs, ", ")
}
