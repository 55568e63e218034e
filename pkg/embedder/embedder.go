package embedder

import (
	"context"
	"fmt"
)

// Config holds provider-independent embedding settings.
type Config struct {
	Model      string
	Dimensions int
	BatchSize  int
}

// Client generates vector representations of text. Implementations must
// reject empty input before any provider call.
type Client interface {
	// Embed generates embeddings for the given texts, one vector per
	// input in the same order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// EmbedSingle generates an embedding for a single text.
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
	// Dimensions returns the dimensionality of produced vectors.
	Dimensions() int
	Close() error
}

func validateInput(texts []string) error {
	if len(texts) == 0 {
		return fmt.Errorf("embedder: no texts provided")
	}
	for i, t := range texts {
		if t == "" {
			return fmt.Errorf("embedder: text at index %d is empty", i)
		}
	}
	return nil
}
