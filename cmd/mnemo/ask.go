package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/config"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask the knowledge graph a question",
	Long: `Ask a natural-language question. Relevant entities and source
documents are retrieved by semantic similarity, expanded through the
graph, and handed to the language model for a grounded answer.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var (
	askStrategy string
	askLimit    int
	askDepth    int
)

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().StringVar(&askStrategy, "strategy", "both", "retrieval strategy (entities, documents, both)")
	askCmd.Flags().IntVar(&askLimit, "limit", 0, "retrieval result limit (0 = default)")
	askCmd.Flags().IntVar(&askDepth, "depth", 0, "traversal depth (0 = default)")
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, _, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	query := strings.Join(args, " ")
	result, err := engine.Ask(context.Background(), query, mnemo.AskOptions{
		Strategy: mnemo.RetrievalStrategy(askStrategy),
		Limit:    askLimit,
		MaxDepth: askDepth,
	})
	if err != nil {
		return err
	}

	if !result.Found {
		fmt.Println("No relevant knowledge found.")
		return nil
	}
	fmt.Println(result.Answer)
	return nil
}
