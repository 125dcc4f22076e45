package engine

import (
	"errors"
	"fmt"
	"strings"
)

// Kind classifies a backend failure into the taxonomy the UI cares about.
type Kind int

const (
	// KindUnclassified is any backend error we pass through unchanged.
	KindUnclassified Kind = iota
	// KindNotFound means a named entity (country, asset) does not exist.
	KindNotFound
	// KindResourceExceeded means the backend hit a memory/capacity limit.
	KindResourceExceeded
	// KindTimeout means the backend timed out the operation.
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "not_found"
	case KindResourceExceeded:
		return "resource_exceeded"
	case KindTimeout:
		return "timeout"
	default:
		return "backend_error"
	}
}

// Error is a classified backend failure. Hint, when set, carries
// actionable guidance for the user.
type Error struct {
	Kind Kind
	Op   string
	Hint string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Op, e.Kind)
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if e.Hint != "" {
		msg = fmt.Sprintf("%s (%s)", msg, e.Hint)
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NotFoundError builds a KindNotFound error for a missing entity.
func NotFoundError(op string, err error) *Error {
	return &Error{Kind: KindNotFound, Op: op, Err: err}
}

// ResourceExceededError builds a KindResourceExceeded error with the
// standard shrink-the-request guidance.
func ResourceExceededError(op string, err error) *Error {
	return &Error{
		Kind: KindResourceExceeded,
		Op:   op,
		Hint: "try a smaller coastal buffer or a shorter year range",
		Err:  err,
	}
}

// TimeoutError builds a KindTimeout error with the same guidance.
func TimeoutError(op string, err error) *Error {
	return &Error{
		Kind: KindTimeout,
		Op:   op,
		Hint: "try a smaller coastal buffer or a shorter year range",
		Err:  err,
	}
}

// KindOf returns the classification of err, or KindUnclassified when err
// carries no engine classification.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnclassified
}

// IsNotFound reports whether err is a KindNotFound engine error.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsResourceExceeded reports whether err is a KindResourceExceeded engine error.
func IsResourceExceeded(err error) bool { return KindOf(err) == KindResourceExceeded }

// IsTimeout reports whether err is a KindTimeout engine error.
func IsTimeout(err error) bool { return KindOf(err) == KindTimeout }

// ClassifyMessage maps a raw backend error message to a Kind using
// substring heuristics. Best effort only: callers should prefer the
// backend's structured status code and fall back to this for clients
// that surface plain strings.
func ClassifyMessage(msg string) Kind {
	m := strings.ToLower(msg)
	switch {
	case strings.Contains(m, "memory") || strings.Contains(m, "capacity exceeded"):
		return KindResourceExceeded
	case strings.Contains(m, "timed out") || strings.Contains(m, "timeout"):
		return KindTimeout
	case strings.Contains(m, "not found"):
		return KindNotFound
	default:
		return KindUnclassified
	}
}
