// Package checkpoint journals batch ingestion progress to disk so an
// interrupted batch can resume from its next unprocessed item instead
// of re-learning from the start.
package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/soundprediction/mnemo/pkg/types"
)

// ErrInvalidBatchID is returned when a batch ID contains path traversal
// or invalid characters.
var ErrInvalidBatchID = errors.New("invalid batch ID: contains path traversal or invalid characters")

// BatchCheckpoint is the durable state of one batch ingestion.
type BatchCheckpoint struct {
	BatchID string `json:"batch_id"`
	ScopeID string `json:"scope_id"`

	CreatedAt     time.Time `json:"created_at"`
	LastUpdatedAt time.Time `json:"last_updated_at"`
	AttemptCount  int       `json:"attempt_count"`
	LastError     string    `json:"last_error,omitempty"`

	// Texts is the full input batch; NextIndex is where processing
	// resumes.
	Texts     []string `json:"texts"`
	NextIndex int      `json:"next_index"`

	// Items holds the per-item outcomes accumulated so far.
	Items   []types.LearnBatchItem `json:"items,omitempty"`
	Created types.CreatedCounts    `json:"created"`
	Reused  types.CreatedCounts    `json:"reused"`
}

// Done reports whether every item has been processed.
func (c *BatchCheckpoint) Done() bool {
	return c.NextIndex >= len(c.Texts)
}

// Manager persists batch checkpoints as JSON files in one directory.
type Manager struct {
	dir string
}

// NewManager creates a checkpoint manager. An empty dir uses
// os.TempDir()/mnemo-checkpoints.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "mnemo-checkpoints")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create checkpoint directory: %w", err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the checkpoint directory path.
func (m *Manager) Dir() string {
	return m.dir
}

// validateBatchID rejects IDs unsafe for use in file paths.
func validateBatchID(batchID string) error {
	if batchID == "" {
		return ErrInvalidBatchID
	}
	if strings.Contains(batchID, "..") {
		return ErrInvalidBatchID
	}
	if strings.ContainsAny(batchID, `/\`) {
		return ErrInvalidBatchID
	}
	if strings.ContainsRune(batchID, '\x00') {
		return ErrInvalidBatchID
	}
	return nil
}

// isPathWithinDirectory checks that the resolved path stays inside the
// expected directory.
func isPathWithinDirectory(path, directory string) bool {
	cleanPath := filepath.Clean(path)
	cleanDir := filepath.Clean(directory)
	if !strings.HasSuffix(cleanDir, string(filepath.Separator)) {
		cleanDir += string(filepath.Separator)
	}
	return strings.HasPrefix(cleanPath, cleanDir) || cleanPath == filepath.Clean(directory)
}

// path returns the checkpoint file path for a batch.
func (m *Manager) path(batchID string) (string, error) {
	if err := validateBatchID(batchID); err != nil {
		return "", err
	}
	fullPath := filepath.Join(m.dir, fmt.Sprintf("batch_%s.json", batchID))
	if !isPathWithinDirectory(fullPath, m.dir) {
		return "", ErrInvalidBatchID
	}
	return fullPath, nil
}

// Save persists the checkpoint, writing through a temp file so a crash
// mid-write never corrupts the journal.
func (m *Manager) Save(ctx context.Context, checkpoint *BatchCheckpoint) error {
	checkpoint.LastUpdatedAt = time.Now()

	data, err := json.MarshalIndent(checkpoint, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	checkpointPath, err := m.path(checkpoint.BatchID)
	if err != nil {
		return err
	}

	tmpPath := checkpointPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write checkpoint file: %w", err)
	}
	if err := os.Rename(tmpPath, checkpointPath); err != nil {
		return fmt.Errorf("failed to rename checkpoint file: %w", err)
	}
	return nil
}

// Load retrieves a checkpoint. A missing checkpoint returns nil, nil.
func (m *Manager) Load(ctx context.Context, batchID string) (*BatchCheckpoint, error) {
	checkpointPath, err := m.path(batchID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(checkpointPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read checkpoint file: %w", err)
	}

	var checkpoint BatchCheckpoint
	if err := json.Unmarshal(data, &checkpoint); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &checkpoint, nil
}

// Delete removes a checkpoint; deleting a missing one is not an error.
func (m *Manager) Delete(ctx context.Context, batchID string) error {
	checkpointPath, err := m.path(batchID)
	if err != nil {
		return err
	}
	if err := os.Remove(checkpointPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete checkpoint file: %w", err)
	}
	return nil
}

// List returns every readable checkpoint in the directory.
func (m *Manager) List(ctx context.Context) ([]*BatchCheckpoint, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint directory: %w", err)
	}

	var checkpoints []*BatchCheckpoint
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(m.dir, entry.Name()))
		if err != nil {
			continue
		}
		var checkpoint BatchCheckpoint
		if err := json.Unmarshal(data, &checkpoint); err != nil {
			continue
		}
		checkpoints = append(checkpoints, &checkpoint)
	}
	return checkpoints, nil
}

// RecordError notes a failed attempt on the checkpoint.
func (m *Manager) RecordError(ctx context.Context, batchID string, cause error) error {
	checkpoint, err := m.Load(ctx, batchID)
	if err != nil {
		return err
	}
	if checkpoint == nil {
		return fmt.Errorf("checkpoint not found for batch %s", batchID)
	}
	checkpoint.AttemptCount++
	checkpoint.LastError = cause.Error()
	return m.Save(ctx, checkpoint)
}

// CleanOld removes checkpoints idle longer than maxAge, returning how
// many were removed.
func (m *Manager) CleanOld(ctx context.Context, maxAge time.Duration) (int, error) {
	checkpoints, err := m.List(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, checkpoint := range checkpoints {
		if checkpoint.LastUpdatedAt.Before(cutoff) {
			if err := m.Delete(ctx, checkpoint.BatchID); err != nil {
				continue
			}
			removed++
		}
	}
	return removed, nil
}
