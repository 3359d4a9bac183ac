package model

import (
	"fmt"
	"strings"
)

// InsufficientDataError reports a series shorter than a component needs.
// Callers recover by supplying more history.
type InsufficientDataError struct {
	Component string
	Required  int
	Got       int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("%s: insufficient data: need %d bars, got %d", e.Component, e.Required, e.Got)
}

// InvalidConfigurationError reports a configuration or input that is
// rejected outright. It is never auto-corrected.
type InvalidConfigurationError struct {
	Field  string
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s: %s", e.Field, e.Reason)
}

// NoModelsAvailableError is returned by the ensemble when every member failed.
type NoModelsAvailableError struct {
	Failures []error
}

func (e *NoModelsAvailableError) Error() string {
	if len(e.Failures) == 0 {
		return "no prediction models available"
	}
	msgs := make([]string, len(e.Failures))
	for i, err := range e.Failures {
		msgs[i] = err.Error()
	}
	return "no prediction models available: " + strings.Join(msgs, "; ")
}

func (e *NoModelsAvailableError) Unwrap() []error { return e.Failures }

// Invalid is a shorthand constructor for InvalidConfigurationError.
func Invalid(field, format string, args ...any) error {
	return &InvalidConfigurationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}
