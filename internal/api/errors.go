package api

import (
	"encoding/json"
	"fmt"
)

// TransportError means no usable response was received (offline, timeout,
// connection refused). Callers show a generic retry-suggesting message.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("transport failure: %v", e.Err) }
func (e *TransportError) Unwrap() error { return e.Err }

// APIError means the server responded with a non-2xx status. Message carries
// the server's own error text when the payload had one, so callers can show
// field-level messages verbatim.
type APIError struct {
	Status  int
	Message string
	Body    []byte
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("server rejected (%d): %s", e.Status, e.Message)
	}
	return fmt.Sprintf("server rejected (%d)", e.Status)
}

// messageFrom pulls a human-readable error out of common payload shapes.
func messageFrom(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
