package state

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"callspool/internal/logging"
)

// DedupCapacity bounds the persisted processed-id list. Eviction is
// oldest-first by insertion order, so an id fetched long ago can in theory
// be re-ingested once evicted; that risk is bounded by the provider's own
// recording retention.
const DedupCapacity = 1000

// DedupCache is the persisted set of recording ids already ingested. It is
// the primary idempotency guard and is deliberately independent of ledger
// state, so a ledger write that never landed still cannot cause a re-save.
type DedupCache struct {
	path   string
	logger *slog.Logger

	mu    sync.Mutex
	ids   []string
	index map[string]struct{}
}

// NewDedupCache loads the processed-id list from path, starting empty when
// the file does not exist yet or cannot be parsed.
func NewDedupCache(path string, logger *slog.Logger) *DedupCache {
	logger = logging.NewComponentLogger(logger, "dedup")

	c := &DedupCache{
		path:   path,
		logger: logger,
		index:  make(map[string]struct{}),
	}

	var ids []string
	found, err := readJSONFile(path, &ids)
	if err != nil {
		logger.Warn("failed to load processed-id list",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "cache starts empty; already-fetched recordings may be re-downloaded"))
		return c
	}
	if found {
		for _, id := range ids {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if _, dup := c.index[id]; dup {
				continue
			}
			c.ids = append(c.ids, id)
			c.index[id] = struct{}{}
		}
	}
	return c
}

// IsProcessed reports whether the recording id has already been ingested.
func (c *DedupCache) IsProcessed(id string) bool {
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[id]
	return ok
}

// MarkProcessed appends the id if absent, evicts from the front past the
// capacity, and persists the whole list in one write.
func (c *DedupCache) MarkProcessed(id string) error {
	id = strings.TrimSpace(id)
	if id == "" {
		return errors.New("recording id cannot be empty")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.index[id]; !ok {
		c.ids = append(c.ids, id)
		c.index[id] = struct{}{}
		for len(c.ids) > DedupCapacity {
			evicted := c.ids[0]
			c.ids = c.ids[1:]
			delete(c.index, evicted)
		}
	}

	if err := writeJSONFile(c.path, c.ids); err != nil {
		return fmt.Errorf("persist processed-id list: %w", err)
	}
	return nil
}

// Len returns the number of ids currently tracked.
func (c *DedupCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.ids)
}
