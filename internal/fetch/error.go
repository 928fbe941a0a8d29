package fetch

import (
	"errors"
	"fmt"
)

// Kind classifies why an upstream request failed.
type Kind int

const (
	KindUnknown Kind = iota
	KindTimeout
	KindHTTP
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindHTTP:
		return "http"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// Error is the normalized failure returned by Client.
// Callers treat it as data: it is never retried automatically.
type Error struct {
	Kind   Kind
	Status int    // HTTP status, only set for KindHTTP
	URL    string // request URL
	Err    error  // underlying cause, if any
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "Request timeout"
	case KindHTTP:
		return fmt.Sprintf("HTTP error! status: %d", e.Status)
	case KindNetwork:
		if e.Err != nil {
			return "Failed to fetch: " + e.Err.Error()
		}
		return "Failed to fetch"
	default:
		if e.Err != nil {
			return "An unknown error occurred: " + e.Err.Error()
		}
		return "An unknown error occurred"
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf reports the Kind of err, or KindUnknown when err is not a *Error.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// StatusOf returns the upstream HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindHTTP {
		return fe.Status
	}
	return 0
}

// IsTimeout reports whether err is a fetch timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == KindTimeout
}
