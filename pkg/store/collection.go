package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Record is anything stored in a collection
type Record interface {
	RecordID() string
}

// Collection is a typed, newest-first list of records. Appends to a
// collection are serialized: at most one write is in flight at a time.
type Collection[T Record] struct {
	name    string
	backend Backend
	logger  *slog.Logger
	metrics *storeMetrics
	writeMu sync.Mutex
}

func newCollection[T Record](
	name string,
	backend Backend,
	logger *slog.Logger,
	metrics *storeMetrics,
) *Collection[T] {
	return &Collection[T]{
		name:    name,
		backend: backend,
		logger:  logger,
		metrics: metrics,
	}
}

// Name returns the collection name
func (c *Collection[T]) Name() string {
	return c.name
}

// Append stores a record at the head of the collection. The record is
// durable once Append returns nil.
func (c *Collection[T]) Append(ctx context.Context, rec T) error {
	id := rec.RecordID()
	if id == "" {
		return c.storageError("append", ErrEmptyID)
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return c.storageError("append", fmt.Errorf("encode record: %w", err))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	start := time.Now()
	err = c.backend.Append(ctx, c.name, id, data)
	c.metrics.observe(c.name, "append", start, err)
	if err != nil {
		return c.storageError("append", err)
	}
	c.logger.Debug(
		fmt.Sprintf("appended record %s", id),
		"component", "store",
		"collection", c.name,
	)
	return nil
}

// List returns every record, newest first
func (c *Collection[T]) List(ctx context.Context) ([]T, error) {
	start := time.Now()
	rows, err := c.backend.List(ctx, c.name)
	c.metrics.observe(c.name, "list", start, err)
	if err != nil {
		return nil, c.storageError("list", err)
	}
	ret := make([]T, 0, len(rows))
	for _, row := range rows {
		var rec T
		if err := json.Unmarshal(row, &rec); err != nil {
			return nil, c.storageError("list", fmt.Errorf("decode record: %w", err))
		}
		ret = append(ret, rec)
	}
	return ret, nil
}

// FindByID returns the record with the given id, or ErrNotFound
func (c *Collection[T]) FindByID(ctx context.Context, id string) (T, error) {
	var rec T
	if id == "" {
		return rec, ErrNotFound
	}
	start := time.Now()
	data, err := c.backend.Get(ctx, c.name, id)
	if errors.Is(err, ErrNotFound) {
		c.metrics.observe(c.name, "get", start, nil)
		return rec, ErrNotFound
	}
	c.metrics.observe(c.name, "get", start, err)
	if err != nil {
		return rec, c.storageError("get", err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, c.storageError("get", fmt.Errorf("decode record: %w", err))
	}
	return rec, nil
}

func (c *Collection[T]) storageError(op string, err error) error {
	return &StorageError{
		Op:         op,
		Collection: c.name,
		Err:        err,
	}
}
