package main

import (
	"fmt"
	"log/slog"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/config"
	"github.com/soundprediction/mnemo/pkg/embedder"
	"github.com/soundprediction/mnemo/pkg/llm"
	"github.com/soundprediction/mnemo/pkg/logger"
	"github.com/soundprediction/mnemo/pkg/store"
)

// buildEngine constructs the full engine stack from configuration:
// store backend, llm client behind a circuit breaker, and embedder.
func buildEngine(cfg *config.Config) (*mnemo.Engine, *slog.Logger, error) {
	log := logger.NewLogger(cfg.Log.Level, cfg.Log.Format)

	graphStore, err := buildStore(cfg)
	if err != nil {
		return nil, nil, err
	}

	llmClient, err := buildLLM(cfg, log)
	if err != nil {
		graphStore.Close()
		return nil, nil, err
	}

	embedderClient, err := buildEmbedder(cfg)
	if err != nil {
		graphStore.Close()
		llmClient.Close()
		return nil, nil, err
	}

	rules := cfg.Engine.Relationships
	if cfg.Engine.RelationshipsFile != "" {
		fileRules, err := config.LoadRelationshipRules(cfg.Engine.RelationshipsFile)
		if err != nil {
			graphStore.Close()
			llmClient.Close()
			embedderClient.Close()
			return nil, nil, err
		}
		rules = append(rules, fileRules...)
	}

	constraints := make([]mnemo.RelationshipConstraint, 0, len(rules))
	for _, r := range rules {
		constraints = append(constraints, mnemo.RelationshipConstraint{
			FromLabel: r.FromLabel,
			Type:      r.Type,
			ToLabel:   r.ToLabel,
		})
	}

	engine, err := mnemo.New(graphStore, llmClient, embedderClient, mnemo.Config{
		DefaultScopeID:       cfg.Engine.DefaultScopeID,
		AllowedRelationships: constraints,
		SearchLimit:          cfg.Engine.SearchLimit,
		SearchThreshold:      cfg.Engine.SearchThreshold,
		TraversalDepth:       cfg.Engine.TraversalDepth,
		TraversalLimit:       cfg.Engine.TraversalLimit,
	}, mnemo.WithLogger(log))
	if err != nil {
		graphStore.Close()
		llmClient.Close()
		embedderClient.Close()
		return nil, nil, err
	}
	return engine, log, nil
}

func buildStore(cfg *config.Config) (store.GraphStore, error) {
	switch store.Provider(cfg.Store.Provider) {
	case store.ProviderNeo4j:
		return store.NewNeo4jStore(store.Neo4jConfig{
			URI:        cfg.Store.URI,
			Username:   cfg.Store.Username,
			Password:   cfg.Store.Password,
			Database:   cfg.Store.Database,
			Dimensions: storeDimensions(cfg),
		})
	case store.ProviderBadger:
		return store.NewBadgerStore(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store provider %q", cfg.Store.Provider)
	}
}

func storeDimensions(cfg *config.Config) int {
	if cfg.Store.Dimensions > 0 {
		return cfg.Store.Dimensions
	}
	return cfg.Embedding.Dimensions
}

func buildLLM(cfg *config.Config, log *slog.Logger) (llm.Client, error) {
	client, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		APIKey:      cfg.LLM.APIKey,
		BaseURL:     cfg.LLM.BaseURL,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		MaxTokens:   cfg.LLM.MaxTokens,
	}, log)
	if err != nil {
		return nil, err
	}

	return llm.NewCircuitBreakerClient(client, llm.BreakerConfig{
		Enabled:          cfg.CircuitBreaker.Enabled,
		MaxRequests:      cfg.CircuitBreaker.MaxRequests,
		IntervalSeconds:  cfg.CircuitBreaker.Interval,
		TimeoutSeconds:   cfg.CircuitBreaker.Timeout,
		ReadyToTripRatio: cfg.CircuitBreaker.ReadyToTripRatio,
	}, "llm", log), nil
}

func buildEmbedder(cfg *config.Config) (embedder.Client, error) {
	embedConfig := embedder.Config{
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		BatchSize:  cfg.Embedding.BatchSize,
	}
	switch cfg.Embedding.Provider {
	case "openai":
		return embedder.NewOpenAIClient(cfg.Embedding.APIKey, cfg.Embedding.BaseURL, embedConfig)
	case "embedeverything", "":
		return embedder.NewEmbedEverythingClient(embedConfig)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Embedding.Provider)
	}
}
