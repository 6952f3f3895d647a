package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks a confirmed upstream absence. It is cacheable and is not
	// an error condition for callers of the resolution layer.
	ErrNotFound = errors.New("not found")
	// ErrTransient marks a retryable upstream or network failure (ApiError).
	ErrTransient = errors.New("transient failure")
	// ErrInvalidID marks a malformed or out-of-range native identifier. Never retried.
	ErrInvalidID = errors.New("invalid id")
	// ErrAllSourcesUnavailable is returned by search when every catalog failed.
	ErrAllSourcesUnavailable = errors.New("all sources unavailable")
	// ErrRejected marks a call refused locally by a circuit breaker or rate limiter.
	ErrRejected = errors.New("request rejected")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
)

// Wrap builds an error message that includes component context while tagging it
// with the provided marker for later classification. The marker should be one of
// the exported sentinel errors above.
func Wrap(marker error, component, operation, message string, err error) error {
	detail := buildDetail(component, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsRetryable reports whether err is worth retrying against the upstream.
// Rejections from an open breaker count as retryable once it closes again.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidID) || errors.Is(err, ErrValidation) {
		return false
	}
	return true
}

func buildDetail(component, operation, message string) string {
	parts := make([]string, 0, 3)
	if component = strings.TrimSpace(component); component != "" {
		parts = append(parts, component)
	}
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
