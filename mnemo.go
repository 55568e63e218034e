package mnemo

import (
	"log/slog"
	"time"

	"github.com/soundprediction/mnemo/pkg/embedder"
	"github.com/soundprediction/mnemo/pkg/llm"
	"github.com/soundprediction/mnemo/pkg/store"
)

// DefaultScopeID is used when a caller supplies no scope.
const DefaultScopeID = "default"

// RelationshipConstraint restricts extraction to a (from label, type,
// to label) triple. Extracted relationships outside the allow-list are
// dropped, not errored.
type RelationshipConstraint struct {
	FromLabel string `json:"from_label" yaml:"from_label"`
	Type      string `json:"type" yaml:"type"`
	ToLabel   string `json:"to_label" yaml:"to_label"`
}

// Config tunes engine behavior. The zero value is usable.
type Config struct {
	// DefaultScopeID substitutes for empty scope ids on every
	// operation.
	DefaultScopeID string

	// AllowedRelationships, when non-empty, constrains extraction to
	// the listed label/type triples.
	AllowedRelationships []RelationshipConstraint

	// SearchLimit bounds retrieval result counts when a caller does
	// not specify one.
	SearchLimit int

	// SearchThreshold discards retrieval matches scoring below it.
	SearchThreshold float64

	// TraversalDepth is the default subgraph expansion depth.
	TraversalDepth int

	// TraversalLimit caps paths expanded per traversal.
	TraversalLimit int
}

func (c Config) withDefaults() Config {
	if c.DefaultScopeID == "" {
		c.DefaultScopeID = DefaultScopeID
	}
	if c.SearchLimit <= 0 {
		c.SearchLimit = store.DefaultSearchLimit
	}
	if c.TraversalDepth <= 0 {
		c.TraversalDepth = 2
	}
	if c.TraversalLimit <= 0 {
		c.TraversalLimit = 100
	}
	return c
}

// Engine orchestrates extraction, deduplication, storage, retrieval,
// and answering. Construct it with New.
type Engine struct {
	store    store.GraphStore
	llm      llm.Client
	embedder embedder.Client
	config   Config
	logger   *slog.Logger
	now      func() time.Time
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the engine's time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine. Store, llm, and embedder are all required.
func New(graphStore store.GraphStore, llmClient llm.Client, embedderClient embedder.Client, config Config, opts ...Option) (*Engine, error) {
	if graphStore == nil {
		return nil, ErrNoStore
	}
	if llmClient == nil {
		return nil, ErrNoLLM
	}
	if embedderClient == nil {
		return nil, ErrNoEmbedder
	}

	e := &Engine{
		store:    graphStore,
		llm:      llmClient,
		embedder: embedderClient,
		config:   config.withDefaults(),
		logger:   slog.Default(),
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Close releases the engine's clients and store.
func (e *Engine) Close() error {
	var firstErr error
	if err := e.llm.Close(); err != nil {
		firstErr = err
	}
	if err := e.embedder.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	if err := e.store.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

// scopeOrDefault substitutes the configured default for empty scopes.
func (e *Engine) scopeOrDefault(scopeID string) string {
	if scopeID == "" {
		return e.config.DefaultScopeID
	}
	return scopeID
}
