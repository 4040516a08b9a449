// Package apperr defines the error sentinels and build diagnostics shared across packages.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrFilesystem   = errors.New("filesystem error")
	ErrBuildRunning = errors.New("build already running")
	ErrNoBuild      = errors.New("no completed build")

	// Fatal for the owning document.
	ErrMetadataMissing = errors.New("metadata block missing")
	ErrMetadataInvalid = errors.New("metadata block invalid")

	// Reported as diagnostics unless strict mode is on.
	ErrCategoryUnresolved = errors.New("category unresolved")
	ErrLinkUnresolved     = errors.New("link unresolved")
	ErrAnchorUnresolved   = errors.New("anchor unresolved")
	ErrDuplicateID        = errors.New("duplicate document id")
)

// Kind classifies a Diagnostic.
type Kind string

const (
	KindCategoryUnresolved Kind = "category_unresolved"
	KindLinkUnresolved     Kind = "link_unresolved"
	KindAnchorUnresolved   Kind = "anchor_unresolved"
	KindDuplicateID        Kind = "duplicate_id"
)

var kindErrors = map[Kind]error{
	KindCategoryUnresolved: ErrCategoryUnresolved,
	KindLinkUnresolved:     ErrLinkUnresolved,
	KindAnchorUnresolved:   ErrAnchorUnresolved,
	KindDuplicateID:        ErrDuplicateID,
}

// Diagnostic is a non-fatal corpus authoring problem found during a build.
// Path is the corpus-relative document that carries the problem and Target
// names what could not be resolved (category id, document id, anchor).
type Diagnostic struct {
	Kind    Kind   `json:"kind"`
	Path    string `json:"path"`
	Target  string `json:"target"`
	Message string `json:"message"`
}

func (d Diagnostic) Error() string {
	if d.Message == "" {
		return fmt.Sprintf("%s: %s: %s", d.Path, d.Kind, d.Target)
	}
	return fmt.Sprintf("%s: %s: %s (%s)", d.Path, d.Kind, d.Target, d.Message)
}

// Unwrap lets errors.Is match a diagnostic against its kind's sentinel.
func (d Diagnostic) Unwrap() error {
	return kindErrors[d.Kind]
}

// Diagnostics is an ordered collection of diagnostics.
type Diagnostics []Diagnostic

// Err joins every diagnostic into a single error, or returns nil when empty.
func (ds Diagnostics) Err() error {
	if len(ds) == 0 {
		return nil
	}
	errs := make([]error, len(ds))
	for i, d := range ds {
		errs[i] = d
	}
	return errors.Join(errs...)
}

// Count returns how many diagnostics have the given kind.
func (ds Diagnostics) Count(kind Kind) int {
	n := 0
	for _, d := range ds {
		if d.Kind == kind {
			n++
		}
	}
	return n
}

// StrictError fails a build whose diagnostics are treated as fatal.
type StrictError struct {
	Diagnostics Diagnostics
}

func (e *StrictError) Error() string {
	return fmt.Sprintf("%d diagnostics reported in strict mode: %v", len(e.Diagnostics), e.Diagnostics.Err())
}

// Unwrap exposes every diagnostic to errors.Is and errors.As.
func (e *StrictError) Unwrap() []error {
	errs := make([]error, len(e.Diagnostics))
	for i, d := range e.Diagnostics {
		errs[i] = d
	}
	return errs
}
