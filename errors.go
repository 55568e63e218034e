package mnemo

import (
	"errors"
	"fmt"
)

// ErrNoStore reports an engine constructed without a graph store.
var ErrNoStore = errors.New("mnemo: graph store is required")

// ErrNoLLM reports an engine constructed without a language model
// client.
var ErrNoLLM = errors.New("mnemo: llm client is required")

// ErrNoEmbedder reports an engine constructed without an embedding
// client.
var ErrNoEmbedder = errors.New("mnemo: embedder client is required")

// ExtractionFormatError reports model output that could not be coerced
// into the extraction payload even after repair.
type ExtractionFormatError struct {
	Detail string
	Raw    string
}

func (e *ExtractionFormatError) Error() string {
	return fmt.Sprintf("extraction output is not valid JSON: %s", e.Detail)
}

// Is reports whether target is an ExtractionFormatError.
func (e *ExtractionFormatError) Is(target error) bool {
	_, ok := target.(*ExtractionFormatError)
	return ok
}

// BackendUnavailableError reports a graph backend that cannot be
// reached.
type BackendUnavailableError struct {
	Provider string
	Err      error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("graph backend %s is unavailable: %v", e.Provider, e.Err)
}

func (e *BackendUnavailableError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a BackendUnavailableError.
func (e *BackendUnavailableError) Is(target error) bool {
	_, ok := target.(*BackendUnavailableError)
	return ok
}

// BatchItemError carries the failure of one item in a batch without
// aborting its siblings.
type BatchItemError struct {
	Index int
	Err   error
}

func (e *BatchItemError) Error() string {
	return fmt.Sprintf("batch item %d: %v", e.Index, e.Err)
}

func (e *BatchItemError) Unwrap() error {
	return e.Err
}
