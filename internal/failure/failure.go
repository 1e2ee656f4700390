// Copyright ©2024 The orthoclique Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package failure defines the typed error taxonomy used across the
// co-expressolog engine. Every fatal condition named by the specification
// is represented as a Kind so that callers can distinguish retryable
// conditions from terminal ones without string matching.
package failure

import "fmt"

// Kind identifies a class of fatal condition.
type Kind string

const (
	// ConfigMismatch indicates a species or tissue declared in
	// configuration is absent from the input data.
	ConfigMismatch Kind = "ConfigMismatch"

	// InputMalformed indicates a schema violation in an input table.
	InputMalformed Kind = "InputMalformed"

	// InsufficientSamples indicates a species/tissue has fewer samples
	// than the configured minimum required for correlation.
	InsufficientSamples Kind = "InsufficientSamples"

	// DegenerateExpression indicates a NaN appeared in a correlation
	// matrix.
	DegenerateExpression Kind = "DegenerateExpression"

	// OrthologGeneMissing indicates a gene referenced by an OrthoPair
	// row is absent from the restricted network it should belong to.
	OrthologGeneMissing Kind = "OrthologGeneMissing"

	// ResourceExhausted indicates memory or wall-time was exceeded.
	// This is the only kind that is automatically retried.
	ResourceExhausted Kind = "ResourceExhausted"

	// ArtifactCorrupt indicates a cached file failed its header or
	// checksum check on load.
	ArtifactCorrupt Kind = "ArtifactCorrupt"
)

// Error is a classified error: an operation name, a Kind, and the
// underlying cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

// New returns an *Error of the given kind for operation op wrapping err.
func New(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

// Unwrap allows errors.Is/errors.As to see through to the cause.
func (e *Error) Unwrap() error { return e.Err }

// Is reports whether target is an *Error with the same Kind, allowing
// errors.Is(err, failure.New(failure.ConfigMismatch, "", nil)) style
// checks. Kind is not itself an error; the KindOf helper below reads the
// Kind of a (possibly wrapped) error directly.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the Kind of err if it is, or wraps, a *Error, and
// reports whether one was found.
func KindOf(err error) (Kind, bool) {
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e.Kind, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			return "", false
		}
		err = u.Unwrap()
	}
	return "", false
}

// Retryable reports whether err represents a ResourceExhausted condition,
// the only kind that is automatically retried per the resource model.
func Retryable(err error) bool {
	k, ok := KindOf(err)
	return ok && k == ResourceExhausted
}
