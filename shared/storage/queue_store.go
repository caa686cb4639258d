package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"collector-stack/internal/models"
)

// QueueState is the durable snapshot of the batch queue. It is written after
// every queue mutation so a crash loses at most an in-flight chunk.
type QueueState struct {
	Queue      []models.BatchItem `json:"queue"`
	DeadLetter []models.BatchItem `json:"dead_letter"`
	Stats      models.BatchStats  `json:"stats"`
	SavedAt    time.Time          `json:"saved_at"`
}

// QueueStore persists QueueState as a JSON file under the data directory.
type QueueStore struct {
	filePath string
}

func NewQueueStore(dataDir string) (*QueueStore, error) {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return &QueueStore{
		filePath: filepath.Join(dataDir, "batch_queue.json"),
	}, nil
}

// Load reads the persisted queue state. A missing file yields an empty state,
// not an error.
func (qs *QueueStore) Load() (*QueueState, error) {
	file, err := os.Open(qs.filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &QueueState{}, nil
		}
		return nil, fmt.Errorf("failed to open queue state file: %w", err)
	}
	defer file.Close()

	var state QueueState
	if err := json.NewDecoder(file).Decode(&state); err != nil {
		return nil, fmt.Errorf("failed to decode queue state: %w", err)
	}
	return &state, nil
}

// Save writes the queue state; the file is replaced atomically enough for a
// single-writer queue (full truncate-and-rewrite, fsync via Close).
func (qs *QueueStore) Save(state *QueueState) error {
	state.SavedAt = time.Now()

	file, err := os.Create(qs.filePath)
	if err != nil {
		return fmt.Errorf("failed to create queue state file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(state); err != nil {
		return fmt.Errorf("failed to encode queue state: %w", err)
	}
	return nil
}
