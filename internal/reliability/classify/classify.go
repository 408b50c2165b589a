// Package classify categorizes failures into a retry-oriented taxonomy.
//
// Classification drives the retry executor: transient, network, timeout
// and throttling failures are retried; validation and permanent failures
// surface immediately.
package classify

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"
)

// Kind is the failure category of an error.
type Kind string

const (
	KindTransient  Kind = "transient"
	KindPermanent  Kind = "permanent"
	KindThrottling Kind = "throttling"
	KindValidation Kind = "validation"
	KindTimeout    Kind = "timeout"
	KindNetwork    Kind = "network"
)

// ClassifiedError pins an explicit Kind onto an error, bypassing the
// heuristic matching below.
type ClassifiedError struct {
	Kind Kind
	Err  error
}

func (e *ClassifiedError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ClassifiedError) Unwrap() error {
	return e.Err
}

func wrap(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &ClassifiedError{Kind: kind, Err: err}
}

// Transient marks an error as retryable.
func Transient(err error) error { return wrap(KindTransient, err) }

// Permanent marks an error as non-retryable.
func Permanent(err error) error { return wrap(KindPermanent, err) }

// Throttling marks an error as a rate-limit response.
func Throttling(err error) error { return wrap(KindThrottling, err) }

// Validation marks an error as bad input, never retried.
func Validation(err error) error { return wrap(KindValidation, err) }

// Validationf builds a validation error from a format string.
func Validationf(format string, args ...any) error {
	return wrap(KindValidation, fmt.Errorf(format, args...))
}

var (
	throttlePatterns = []string{
		"too many requests",
		"rate limit",
		"throttl",
		"quota exceeded",
		"slow down",
	}
	validationPatterns = []string{
		"conditional check",
		"condition failed",
		"validation",
		"invalid input",
		"already exists",
		"missing required",
	}
	networkPatterns = []string{
		"connection refused",
		"connection reset",
		"no such host",
		"broken pipe",
		"network is unreachable",
		"eof",
	}

	httpStatusRe = regexp.MustCompile(`\b([45]\d{2})\b`)
)

// Classify returns the Kind of an error. It never panics; unrecognized
// failures default to transient so they get an optimistic retry.
func Classify(err error) Kind {
	if err == nil {
		return KindTransient
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Kind
	}

	msg := strings.ToLower(err.Error())

	for _, p := range throttlePatterns {
		if strings.Contains(msg, p) {
			return KindThrottling
		}
	}

	for _, p := range validationPatterns {
		if strings.Contains(msg, p) {
			return KindValidation
		}
	}

	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout") ||
		strings.Contains(msg, "timed out") || strings.Contains(msg, "deadline exceeded") {
		return KindTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return KindTimeout
		}
		return KindNetwork
	}
	for _, p := range networkPatterns {
		if strings.Contains(msg, p) {
			return KindNetwork
		}
	}

	if m := httpStatusRe.FindString(msg); m != "" {
		switch {
		case m == "429":
			return KindThrottling
		case m[0] == '5':
			return KindTransient
		default:
			return KindPermanent
		}
	}

	return KindTransient
}

// Retryable reports whether a failure of the given kind should be retried.
func Retryable(kind Kind) bool {
	switch kind {
	case KindTransient, KindNetwork, KindTimeout, KindThrottling:
		return true
	default:
		return false
	}
}
