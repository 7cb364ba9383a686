package store

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"time"

	slogGorm "github.com/orandin/slog-gorm"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SnapshotRecord is a stored copy of the most recent resolution result
// for a DID on a particular ledger.
type SnapshotRecord struct {
	DID         string    `gorm:"column:did;primaryKey"`
	Ledger      string    `gorm:"column:ledger;primaryKey"`
	ContentType string    `gorm:"column:content_type;not null"`
	Body        []byte    `gorm:"column:body;not null"`
	Deactivated bool      `gorm:"column:deactivated;not null;default:0"`
	ResolvedAt  time.Time `gorm:"column:resolved_at;not null;index:idx_snapshots_resolved_at"`
}

func (SnapshotRecord) TableName() string {
	return "snapshots"
}

// GormSnapshotStore persists resolved DID documents in a database
type GormSnapshotStore struct {
	db *gorm.DB
}

// NewSnapshotStoreWithDialector creates a snapshot store with a custom dialector
func NewSnapshotStoreWithDialector(dialector gorm.Dialector, logger *slog.Logger) (*GormSnapshotStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger: slogGorm.New(
			slogGorm.WithHandler(logger.With("component", "snapshotstore").Handler()),
			slogGorm.WithTraceAll(),
			slogGorm.SetLogLevel(slogGorm.DefaultLogType, slog.LevelDebug),
			slogGorm.SetLogLevel(slogGorm.SlowQueryLogType, slog.LevelWarn),
			slogGorm.SetLogLevel(slogGorm.ErrorLogType, slog.LevelError),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database handle: %w", err)
	}

	sqlDB.SetMaxOpenConns(40)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&SnapshotRecord{}); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return &GormSnapshotStore{
		db: db,
	}, nil
}

func NewSnapshotStoreWithSqlite(dbPath string, logger *slog.Logger) (*GormSnapshotStore, error) {
	return NewSnapshotStoreWithDialector(
		sqlite.Open(dbPath+"?mode=rwc&cache=shared&_journal_mode=WAL"),
		logger,
	)
}

func NewSnapshotStoreWithPostgres(dsn string, logger *slog.Logger) (*GormSnapshotStore, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse postgres URL: %w", err)
	}
	q := u.Query()
	if !q.Has("synchronous_commit") {
		// Snapshots can always be re-fetched from the resolver, so
		// losing a commit on crash is acceptable.
		q.Set("synchronous_commit", "off")
	}
	u.RawQuery = q.Encode()
	return NewSnapshotStoreWithDialector(
		postgres.Open(u.String()),
		logger,
	)
}

// Put upserts a snapshot, replacing any previous snapshot for the same
// DID and ledger.
func (s *GormSnapshotStore) Put(ctx context.Context, rec *SnapshotRecord) error {
	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		UpdateAll: true,
	}).Create(rec)
	if result.Error != nil {
		return fmt.Errorf("failed to store snapshot: %w", result.Error)
	}
	return nil
}

// Get returns the stored snapshot for a DID and ledger.
// Returns nil if no snapshot exists.
func (s *GormSnapshotStore) Get(ctx context.Context, did string, ledger string) (*SnapshotRecord, error) {
	var rec SnapshotRecord
	result := s.db.WithContext(ctx).Where("did = ? AND ledger = ?", did, ledger).Take(&rec)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("database error: %w", result.Error)
	}
	return &rec, nil
}

// ListStale returns up to limit snapshots resolved before the cutoff,
// oldest first.
func (s *GormSnapshotStore) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]*SnapshotRecord, error) {
	var recs []*SnapshotRecord
	result := s.db.WithContext(ctx).
		Where("resolved_at < ?", cutoff).
		Order("resolved_at ASC").
		Limit(limit).
		Find(&recs)
	if result.Error != nil {
		return nil, fmt.Errorf("database error: %w", result.Error)
	}
	return recs, nil
}

// Count returns the total number of stored snapshots
func (s *GormSnapshotStore) Count(ctx context.Context) (int64, error) {
	var n int64
	result := s.db.WithContext(ctx).Model(&SnapshotRecord{}).Count(&n)
	if result.Error != nil {
		return 0, fmt.Errorf("database error: %w", result.Error)
	}
	return n, nil
}
