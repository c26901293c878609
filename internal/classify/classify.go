// Package classify normalizes every boundary failure into the stable
// taxonomy every other component depends on. API failures are unwrapped to
// a k8s.io/apimachinery/pkg/api/errors StatusError and mapped by their HTTP
// status code; other errors are matched against transport error patterns.
package classify

import (
	"errors"
	"fmt"
	"strings"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

type Kind string

const (
	Forbidden    Kind = "forbidden"
	Unauthorized Kind = "unauthorized"
	NotFound     Kind = "not-found"
	Conflict     Kind = "conflict"
	RateLimited  Kind = "rate-limited"
	ServerError  Kind = "server-error"
	Network      Kind = "network"
	Timeout      Kind = "timeout"
	Unknown      Kind = "unknown"
)

// retryableKinds mirrors §4.3's rule and §8's invariant: retryable ==
// (kind ∈ {conflict, rate-limited, server-error, network, timeout, unknown}).
var retryableKinds = map[Kind]bool{
	Conflict:    true,
	RateLimited: true,
	ServerError: true,
	Network:     true,
	Timeout:     true,
	Unknown:     true,
}

var suggestions = map[Kind][]string{
	Forbidden:    {"the active credentials lack permission for this operation", "check RBAC role bindings for the current user"},
	Unauthorized: {"credentials may have expired — try reconnecting", "re-authenticate and retry"},
	NotFound:     {"the resource may have been deleted", "double-check the name and namespace"},
	Conflict:     {"the resource was modified concurrently — reload and retry", "retry with the latest resource version"},
	RateLimited:  {"the API server is throttling requests — back off and retry", "reduce request frequency"},
	ServerError:  {"the cluster API server reported an internal error — retry shortly", "check cluster control-plane health"},
	Network:      {"the cluster API server is unreachable — check network connectivity", "verify the cluster endpoint and VPN/proxy settings"},
	Timeout:      {"the request exceeded its deadline — retry or increase the timeout", "check cluster responsiveness"},
	Unknown:      {"an unexpected error occurred — retry, and report if it persists"},
}

// Error is the structured result every boundary operation returns on
// failure instead of a bare error.
type Error struct {
	Kind        Kind     `json:"kind"`
	Code        int      `json:"code,omitempty"`
	Message     string   `json:"message"`
	Detail      string   `json:"detail,omitempty"`
	Resource    string   `json:"resource,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Retryable   bool     `json:"retryable"`
}

func (e *Error) Error() string { return e.Message }

// Classify converts any error into a structured Error. A nil input
// returns nil.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var statusErr *apierrors.StatusError
	if errors.As(err, &statusErr) {
		return classifyStatus(statusErr)
	}

	return classifyTransport(err)
}

func classifyStatus(statusErr *apierrors.StatusError) *Error {
	status := statusErr.Status()
	kind := kindFromStatusCode(int(status.Code))

	var resource string
	if status.Details != nil {
		if status.Details.Name != "" {
			resource = fmt.Sprintf("%s/%s", status.Details.Kind, status.Details.Name)
		} else if status.Details.Kind != "" {
			resource = status.Details.Kind
		}
	}

	return &Error{
		Kind:        kind,
		Code:        int(status.Code),
		Message:     statusErr.Error(),
		Detail:      string(status.Reason),
		Resource:    resource,
		Suggestions: suggestions[kind],
		Retryable:   retryableKinds[kind],
	}
}

func kindFromStatusCode(code int) Kind {
	switch {
	case code == 401:
		return Unauthorized
	case code == 403:
		return Forbidden
	case code == 404:
		return NotFound
	case code == 409:
		return Conflict
	case code == 429:
		return RateLimited
	case code >= 500 && code < 600:
		return ServerError
	default:
		return Unknown
	}
}

func classifyTransport(err error) *Error {
	msg := strings.ToLower(err.Error())
	kind := Unknown
	switch {
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		kind = Timeout
	case strings.Contains(msg, "connection refused") || strings.Contains(msg, "no such host") ||
		strings.Contains(msg, "dns") || strings.Contains(msg, "network is unreachable"):
		kind = Network
	}

	return &Error{
		Kind:        kind,
		Message:     err.Error(),
		Suggestions: suggestions[kind],
		Retryable:   retryableKinds[kind],
	}
}
