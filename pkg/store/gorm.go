package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	"gorm.io/plugin/opentelemetry/tracing"
)

const sqliteFileName = "walrus.sqlite"

// recordRow is the SQL representation of a stored record. Seq orders the
// rows of all collections by insertion.
type recordRow struct {
	Seq        uint64    `gorm:"primaryKey;autoIncrement"`
	Collection string    `gorm:"size:32;not null;uniqueIndex:idx_records_collection_record_id"`
	RecordID   string    `gorm:"size:64;not null;uniqueIndex:idx_records_collection_record_id"`
	Data       []byte    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
}

func (recordRow) TableName() string {
	return "records"
}

// GormBackend stores records in a SQL database through gorm
type GormBackend struct {
	db     *gorm.DB
	logger *slog.Logger
}

// NewSqliteBackend opens a SQLite database in dataDir. An empty dataDir
// gives a private in-memory database.
func NewSqliteBackend(dataDir string, logger *slog.Logger) (*GormBackend, error) {
	var dsn string
	if dataDir == "" {
		dsn = "file::memory:"
	} else {
		// Make sure that we can read data dir, and create if it doesn't exist
		if _, err := os.Stat(dataDir); err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read data dir: %w", err)
			}
			if err := os.MkdirAll(dataDir, fs.ModePerm); err != nil {
				return nil, fmt.Errorf("failed to create data dir: %w", err)
			}
		}
		// WAL journal mode with a full sync on every commit
		connOpts := "_pragma=journal_mode(WAL)&_pragma=synchronous(FULL)&_pragma=busy_timeout(5000)"
		dsn = fmt.Sprintf("file:%s?%s", filepath.Join(dataDir, sqliteFileName), connOpts)
	}
	// One connection for both modes. Every new connection to file::memory:
	// is a separate database, and on a file a deferred transaction that
	// reads before it writes fails with SQLITE_BUSY when another connection
	// commits in between.
	return newGormBackend(sqlite.Open(dsn), logger, 1)
}

// NewPostgresBackend connects to PostgreSQL using the given DSN
func NewPostgresBackend(dsn string, logger *slog.Logger) (*GormBackend, error) {
	return newGormBackend(postgres.Open(dsn), logger, 0)
}

// NewMysqlBackend connects to MySQL using the given DSN
func NewMysqlBackend(dsn string, logger *slog.Logger) (*GormBackend, error) {
	return newGormBackend(mysql.Open(dsn), logger, 0)
}

func newGormBackend(
	dialector gorm.Dialector,
	logger *slog.Logger,
	maxOpenConns int,
) (*GormBackend, error) {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	db, err := gorm.Open(
		dialector,
		&gorm.Config{
			Logger: gormlogger.Discard,
		},
	)
	if err != nil {
		return nil, err
	}
	if maxOpenConns > 0 {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, err
		}
		sqlDB.SetMaxOpenConns(maxOpenConns)
	}
	// Configure tracing for GORM
	if err := db.Use(tracing.NewPlugin(tracing.WithoutMetrics())); err != nil {
		return nil, err
	}
	logger.Debug(
		fmt.Sprintf("creating table: %s", recordRow{}.TableName()),
		"component", "store",
	)
	if err := db.AutoMigrate(&recordRow{}); err != nil {
		return nil, err
	}
	return &GormBackend{
		db:     db,
		logger: logger,
	}, nil
}

func (g *GormBackend) Append(ctx context.Context, collection string, id string, data []byte) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		result := tx.Model(&recordRow{}).
			Where("collection = ? AND record_id = ?", collection, id).
			Count(&count)
		if result.Error != nil {
			return result.Error
		}
		if count > 0 {
			return ErrDuplicateID
		}
		row := &recordRow{
			Collection: collection,
			RecordID:   id,
			Data:       data,
			CreatedAt:  time.Now().UTC(),
		}
		return tx.Create(row).Error
	})
}

func (g *GormBackend) List(ctx context.Context, collection string) ([][]byte, error) {
	var rows []recordRow
	result := g.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq DESC").
		Find(&rows)
	if result.Error != nil {
		return nil, result.Error
	}
	ret := make([][]byte, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.Data)
	}
	return ret, nil
}

func (g *GormBackend) Get(ctx context.Context, collection string, id string) ([]byte, error) {
	var row recordRow
	result := g.db.WithContext(ctx).
		Where("collection = ? AND record_id = ?", collection, id).
		First(&row)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, result.Error
	}
	return row.Data, nil
}

// Close closes the underlying database connection
func (g *GormBackend) Close() error {
	sqlDB, err := g.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
