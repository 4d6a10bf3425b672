// Package apperr holds the error taxonomy surfaced to the user.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingCredential means neither the secret store nor the environment
	// carries the model API key. Generation is disabled; everything else works.
	ErrMissingCredential = errors.New("api credential not configured")

	ErrGenerationDisabled = errors.New("generation disabled: add your API key to the secrets file or environment")
	ErrNothingToGenerate  = errors.New("upload a PDF before generating study materials")
)

// DocumentParseError reports an upload that could not be turned into text.
type DocumentParseError struct {
	Err error
}

func (e *DocumentParseError) Error() string {
	return fmt.Sprintf("extract text from pdf: %v", e.Err)
}

func (e *DocumentParseError) Unwrap() error { return e.Err }

// ModelInvocationError reports a failed chat completion. Artifact is empty
// until the generation cycle tags it.
type ModelInvocationError struct {
	Artifact string
	Err      error
}

func (e *ModelInvocationError) Error() string {
	if e.Artifact == "" {
		return fmt.Sprintf("model call failed: %v", e.Err)
	}
	return fmt.Sprintf("generate %s: %v", e.Artifact, e.Err)
}

func (e *ModelInvocationError) Unwrap() error { return e.Err }

// StorageError reports a failed record store operation.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
