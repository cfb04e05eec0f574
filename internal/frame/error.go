// Copyright (c) 2023-2026 Voicegraph Contributors
//
// Licensed under GPL-2.0 with Voicegraph Additional Terms.
// See LICENSE.md for details.

package frame

import "fmt"

// PipelineError carries an ErrorKind alongside a plain Go error so stage
// runtime can apply the right recovery policy without re-parsing
// error strings.
type PipelineError struct {
	Stage string
	Kind  ErrorKind
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Kind, e.Err)
}

func (e *PipelineError) Unwrap() error { return e.Err }

// Transient reports whether the recovery policy for this kind is retry.
func (e *PipelineError) Transient() bool {
	return e.Kind == ErrTransientNetwork
}

// Fatal reports whether the recovery policy ends the session outright.
func (e *PipelineError) Fatal() bool {
	return e.Kind == ErrInternalInvariant
}

func NewPipelineError(stage string, kind ErrorKind, err error) *PipelineError {
	return &PipelineError{Stage: stage, Kind: kind, Err: err}
}
