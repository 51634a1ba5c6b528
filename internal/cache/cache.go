// Package cache provides the content-addressed store for validated model
// responses. Entries are keyed by (expert, mode, text fingerprint) so a run
// over an already analyzed job costs no model calls.
package cache

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
)

// Store is the durable backend behind a Cache. Implementations must treat
// unknown keys as absent and must write entries atomically.
type Store interface {
	// Read returns the raw bytes stored under key, or ok=false when the key
	// was never written or the entry cannot be read back.
	Read(key string) (data []byte, ok bool, err error)
	// Write persists data under key, overwriting any previous entry.
	Write(key string, data []byte) error
}

// Cache wraps a Store with fingerprint-based addressing and JSON payloads.
// It is constructed explicitly and passed to whoever needs it; there is no
// package-level instance.
type Cache struct {
	store  Store
	logger *zap.Logger
}

// New creates a Cache on top of the given store.
func New(store Store, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{store: store, logger: logger}
}

// Get looks up the cached response for (text, expertID, mode). Any storage
// or decode failure reads as a miss: a stale recomputation is acceptable, a
// crashed run is not.
func (c *Cache) Get(text, expertID, mode string) (json.RawMessage, bool) {
	key := NewKey(text, expertID, mode).String()

	data, ok, err := c.store.Read(key)
	if err != nil {
		c.logger.Debug("cache read failed, treating as miss",
			zap.String("key", key),
			zap.Error(err),
		)
		return nil, false
	}
	if !ok {
		return nil, false
	}

	if !json.Valid(data) {
		c.logger.Warn("cache entry is not valid json, treating as miss",
			zap.String("key", key),
		)
		return nil, false
	}

	return json.RawMessage(data), true
}

// Save stores the payload under the key computed from (text, expertID, mode).
// Write failures are returned to the caller: a silently lost write would cost
// a model call on every subsequent run with nothing in the logs to show why.
func (c *Cache) Save(text, expertID, mode string, payload any) error {
	key := NewKey(text, expertID, mode).String()

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal cache entry %s: %w", key, err)
	}

	if err := c.store.Write(key, data); err != nil {
		return fmt.Errorf("write cache entry %s: %w", key, err)
	}

	return nil
}
