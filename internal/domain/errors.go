package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound marks an unknown order, branch, source or draft line.
	ErrNotFound = errors.New("not found")
	// ErrEmptyAllocation is returned when a commit carries no lines.
	ErrEmptyAllocation = errors.New("allocation has no lines")
	// ErrInvalidInput marks malformed requests that are not per-line validation problems.
	ErrInvalidInput = errors.New("invalid input")
)

// ValidationReason is the machine-readable cause of a line violation.
type ValidationReason string

const (
	ReasonQuantityNonPositive      ValidationReason = "QuantityNonPositive"
	ReasonQuantityExceedsAvailable ValidationReason = "QuantityExceedsAvailable"
	ReasonMissingSource            ValidationReason = "MissingSource"
	ReasonPriceNegative            ValidationReason = "PriceNegative"
)

// ValidationError describes one invalid allocation line.
type ValidationError struct {
	Line    int              `json:"line"`
	Reason  ValidationReason `json:"reason"`
	Message string           `json:"message"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("line %d: %s: %s", e.Line, e.Reason, e.Message)
}

// ValidationErrors collects every violation found in one pass.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	parts := make([]string, len(e))
	for i, v := range e {
		parts[i] = v.Error()
	}
	return "allocation invalid: " + strings.Join(parts, "; ")
}

// Has reports whether any violation carries reason for line.
func (e ValidationErrors) Has(line int, reason ValidationReason) bool {
	for _, v := range e {
		if v.Line == line && v.Reason == reason {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned for any status change the lifecycle does not allow.
type InvalidTransitionError struct {
	Current   OrderStatus
	Requested OrderStatus
	Detail    string
}

func (e *InvalidTransitionError) Error() string {
	msg := fmt.Sprintf("invalid transition from %s to %s", e.Current, e.Requested)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	return msg
}

// NotFoundf wraps ErrNotFound with entity detail.
func NotFoundf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
}

// InvalidInputf wraps ErrInvalidInput with detail.
func InvalidInputf(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidInput)
}
