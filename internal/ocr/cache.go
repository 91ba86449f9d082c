package ocr

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"
)

// Cache memoizes recognition results in BadgerDB, keyed by image digest
// and recognition options, so rescanning the same file skips the engine.
type Cache struct {
	next   Engine
	db     *badger.DB
	ttl    time.Duration
	logger *zap.Logger
}

// OpenBadger opens a BadgerDB at path; an empty path gives an in-memory DB
func OpenBadger(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithLogger(nil).
		WithNumVersionsToKeep(1).
		WithCompactL0OnClose(true).
		WithValueLogFileSize(16 << 20).
		WithMemTableSize(16 << 20)
	if path == "" {
		opts = opts.WithInMemory(true)
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger: %w", err)
	}
	return db, nil
}

// NewCache wraps next with a badger-backed cache. A zero ttl keeps entries forever.
func NewCache(next Engine, db *badger.DB, ttl time.Duration, logger *zap.Logger) *Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cache{next: next, db: db, ttl: ttl, logger: logger}
}

// Name returns the wrapped engine name
func (c *Cache) Name() string {
	return c.next.Name()
}

// IsAvailable delegates to the wrapped engine
func (c *Cache) IsAvailable() bool {
	return c.next.IsAvailable()
}

// Recognize serves from cache or calls the wrapped engine and stores the result
func (c *Cache) Recognize(ctx context.Context, img []byte, opts Options) ([]Line, error) {
	key := c.key(img, opts)

	if lines, ok := c.get(key); ok {
		c.logger.Debug("OCR cache hit", zap.String("key", string(key)))
		return lines, nil
	}

	lines, err := c.next.Recognize(ctx, img, opts)
	if err != nil {
		return nil, err
	}

	if err := c.put(key, lines); err != nil {
		c.logger.Warn("Failed to cache OCR result", zap.Error(err))
	}
	return lines, nil
}

func (c *Cache) key(img []byte, opts Options) []byte {
	sum := sha256.Sum256(img)
	return []byte(fmt.Sprintf("ocr:%s:%s:%d:%s:%s", c.next.Name(), opts.Language, opts.PageSegMode, opts.Whitelist, hex.EncodeToString(sum[:])))
}

func (c *Cache) get(key []byte) ([]Line, bool) {
	var lines []Line
	err := c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &lines)
		})
	})
	if err != nil {
		if !errors.Is(err, badger.ErrKeyNotFound) {
			c.logger.Warn("OCR cache read failed", zap.Error(err))
		}
		return nil, false
	}
	return lines, true
}

func (c *Cache) put(key []byte, lines []Line) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return err
	}
	return c.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(key, data)
		if c.ttl > 0 {
			entry = entry.WithTTL(c.ttl)
		}
		return txn.SetEntry(entry)
	})
}
