package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"walrusweb/pkg/models"
)

// Collection names
const (
	CollectionContacts = "contacts"
	CollectionPitches  = "pitches"
)

// Storage drivers
const (
	DriverMemory   = "memory"
	DriverBadger   = "badger"
	DriverSqlite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMysql    = "mysql"
)

var (
	ErrNotFound    = errors.New("record not found")
	ErrDuplicateID = errors.New("record id already exists")
	ErrEmptyID     = errors.New("record id is empty")
)

// StorageError reports a failed read or write against the backend
type StorageError struct {
	Op         string
	Collection string
	Err        error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("store: %s %s: %v", e.Op, e.Collection, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Backend is the raw storage for the record collections. Records are opaque
// bytes keyed by id. Implementations must apply each Append atomically and
// durably before returning, list newest first, and return ErrNotFound from
// Get and ErrDuplicateID from Append where appropriate. A collection that
// was never written to is empty.
type Backend interface {
	Append(ctx context.Context, collection string, id string, data []byte) error
	List(ctx context.Context, collection string) ([][]byte, error)
	Get(ctx context.Context, collection string, id string) ([]byte, error)
	Close() error
}

// Store holds the contact submission and pitch collections
type Store struct {
	backend      Backend
	logger       *slog.Logger
	promRegistry prometheus.Registerer
	metrics      *storeMetrics
	contacts     *Collection[models.ContactSubmission]
	pitches      *Collection[models.PitchRecord]
}

type StoreOptionFunc func(*Store)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) StoreOptionFunc {
	return func(s *Store) {
		s.logger = logger
	}
}

// WithPromRegistry specifies the prometheus registry to use for metrics
func WithPromRegistry(registry prometheus.Registerer) StoreOptionFunc {
	return func(s *Store) {
		s.promRegistry = registry
	}
}

// New creates a store on top of the given backend
func New(backend Backend, opts ...StoreOptionFunc) *Store {
	s := &Store{
		backend: backend,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	s.metrics = newStoreMetrics(s.promRegistry)
	s.contacts = newCollection[models.ContactSubmission](CollectionContacts, backend, s.logger, s.metrics)
	s.pitches = newCollection[models.PitchRecord](CollectionPitches, backend, s.logger, s.metrics)
	return s
}

// Contacts returns the contact submission collection
func (s *Store) Contacts() *Collection[models.ContactSubmission] {
	return s.contacts
}

// Pitches returns the pitch collection
func (s *Store) Pitches() *Collection[models.PitchRecord] {
	return s.pitches
}

// Close closes the underlying backend
func (s *Store) Close() error {
	return s.backend.Close()
}
