package models

import (
	"errors"
	"fmt"
)

var ErrIllDefinedProjection = errors.New("ill-defined projection")

// IllDefinedProjectionError reports that a language had too few surviving
// concepts for the configured neighborhood size.
type IllDefinedProjectionError struct {
	Language  string
	Points    int
	Neighbors int
}

func (e *IllDefinedProjectionError) Error() string {
	return fmt.Sprintf(
		"projection for %s is ill-defined: %d points with neighborhood size %d",
		e.Language, e.Points, e.Neighbors,
	)
}

func (e *IllDefinedProjectionError) Unwrap() error {
	return ErrIllDefinedProjection
}

var ErrUpstreamUnavailable = errors.New("upstream unavailable")

// UpstreamUnavailableError is fatal for the affected stage and language
// only; results already computed for other languages are preserved.
type UpstreamUnavailableError struct {
	Stage    string
	Language string
	Cause    error
}

func (e *UpstreamUnavailableError) Error() string {
	if e.Language == "" {
		return fmt.Sprintf("upstream unavailable in stage %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("upstream unavailable in stage %s for %s: %v", e.Stage, e.Language, e.Cause)
}

func (e *UpstreamUnavailableError) Unwrap() error {
	return ErrUpstreamUnavailable
}

func NewUpstreamUnavailableError(stage, language string, cause error) error {
	return &UpstreamUnavailableError{Stage: stage, Language: language, Cause: cause}
}
