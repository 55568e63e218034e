package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/soundprediction/mnemo"
	"github.com/soundprediction/mnemo/pkg/checkpoint"
	"github.com/soundprediction/mnemo/pkg/config"
)

var learnCmd = &cobra.Command{
	Use:   "learn [text]",
	Short: "Ingest text into the knowledge graph",
	Long: `Ingest text into the knowledge graph. Text is taken from the
argument, or from stdin when no argument is given. With --batch, each
non-empty input line is ingested as its own text.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runLearn,
}

var (
	learnContextName string
	learnSource      string
	learnBatch       bool
	learnBatchID     string
)

func init() {
	rootCmd.AddCommand(learnCmd)

	learnCmd.Flags().StringVar(&learnContextName, "context", "", "ingestion context name")
	learnCmd.Flags().StringVar(&learnSource, "source", "", "ingestion source annotation")
	learnCmd.Flags().BoolVar(&learnBatch, "batch", false, "treat each input line as a separate text")
	learnCmd.Flags().StringVar(&learnBatchID, "batch-id", "", "journal batch progress under this id for resume")
}

func runLearn(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	engine, log, err := buildEngine(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer engine.Close()

	input, err := readInput(args)
	if err != nil {
		return err
	}

	opts := mnemo.LearnOptions{
		ContextName: learnContextName,
		Source:      learnSource,
	}
	ctx := context.Background()

	if learnBatch {
		texts := splitLines(input)
		var result interface {
			Summary() string
		}
		if learnBatchID != "" {
			journal, err := checkpoint.NewManager(cfg.Checkpoint.Path)
			if err != nil {
				return err
			}
			batch, err := engine.LearnBatchResumable(ctx, learnBatchID, texts, opts, journal)
			if err != nil {
				return err
			}
			result = batch
		} else {
			batch, err := engine.LearnBatch(ctx, texts, opts)
			if err != nil {
				return err
			}
			result = batch
		}
		fmt.Println(result.Summary())
		return nil
	}

	learned, err := engine.Learn(ctx, input, opts)
	if err != nil {
		return err
	}
	log.Info("learned",
		"entities_created", learned.Created.Entities,
		"entities_reused", learned.Reused.Entities,
		"relationships_created", learned.Created.Relationships)
	fmt.Printf("Learned %d new entities, %d new relationships (%d entities reused)\n",
		learned.Created.Entities, learned.Created.Relationships, learned.Reused.Entities)
	return nil
}

func readInput(args []string) (string, error) {
	if len(args) == 1 && args[0] != "-" {
		return args[0], nil
	}
	data, err := io.ReadAll(bufio.NewReader(os.Stdin))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return string(data), nil
}

func splitLines(input string) []string {
	var texts []string
	for _, line := range strings.Split(input, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			texts = append(texts, trimmed)
		}
	}
	return texts
}
