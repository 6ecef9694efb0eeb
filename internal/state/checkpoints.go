package state

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"callspool/internal/logging"
)

// Checkpoint is the resume point for a fetch window interrupted by the
// execution time budget.
type Checkpoint struct {
	From     time.Time `json:"from"`
	To       time.Time `json:"to"`
	NextPage int       `json:"page"`
}

// CheckpointQueue persists interrupted-fetch resume points as a small FIFO
// queue. Checkpoints are additive: a second interruption before the first
// resume does not overwrite the earlier checkpoint.
type CheckpointQueue struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	items []Checkpoint
}

// NewCheckpointQueue loads any persisted checkpoints from path.
func NewCheckpointQueue(path string, logger *slog.Logger) *CheckpointQueue {
	logger = logging.NewComponentLogger(logger, "checkpoints")

	q := &CheckpointQueue{path: path, logger: logger}
	if _, err := readJSONFile(path, &q.items); err != nil {
		logger.Warn("failed to load checkpoint queue",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "pending continuations are lost; the next full window fetch will cover the gap"))
		q.items = nil
	}
	return q
}

// Push appends a checkpoint and persists the queue.
func (q *CheckpointQueue) Push(cp Checkpoint) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.items = append(q.items, cp)
	if err := writeJSONFile(q.path, q.items); err != nil {
		return fmt.Errorf("persist checkpoint queue: %w", err)
	}
	return nil
}

// Pop removes and returns the oldest checkpoint. The removal is persisted
// before the checkpoint is handed to the caller, so each checkpoint is
// consumed exactly once even if the resume that follows fails.
func (q *CheckpointQueue) Pop() (*Checkpoint, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return nil, nil
	}
	head := q.items[0]
	rest := append([]Checkpoint{}, q.items[1:]...)
	if err := writeJSONFile(q.path, rest); err != nil {
		return nil, fmt.Errorf("persist checkpoint queue: %w", err)
	}
	q.items = rest
	return &head, nil
}

// Len returns the number of pending checkpoints.
func (q *CheckpointQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}
