package telemetry

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"kickshift/backend/internal/config"
)

var ErrStoreUnavailable = errors.New("telemetry store unavailable")

const memoryDSN = "file::memory:"

// Store persists events through gorm.
type Store struct {
	db  *gorm.DB
	log zerolog.Logger
}

// Open connects to Postgres when a DSN is configured and falls back to
// SQLite otherwise, or when Postgres cannot be reached. An empty SQLite path
// keeps the database in memory.
func Open(cfg config.TelemetryConfig, log zerolog.Logger) (*Store, error) {
	if cfg.DSN != "" {
		db, err := openPostgres(cfg.DSN)
		if err == nil {
			log.Info().Msg("connected to postgres")
			return NewStore(db, log)
		}
		log.Error().Err(err).Msg("failed to connect to postgres, trying sqlite")
	}
	db, err := openSQLite(cfg.SQLitePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
	}
	log.Info().Str("path", cmp.Or(cfg.SQLitePath, memoryDSN)).Msg("using sqlite")
	return NewStore(db, log)
}

func openPostgres(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  dsn,
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.Ping(); err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(10)
	return db, nil
}

func openSQLite(path string) (*gorm.DB, error) {
	if path == "" {
		path = memoryDSN
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// every sqlite connection would otherwise see its own database
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// NewStore wraps an open connection and migrates the schema.
func NewStore(db *gorm.DB, log zerolog.Logger) (*Store, error) {
	if err := db.AutoMigrate(&Event{}); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

// Record inserts events in one batch.
func (s *Store) Record(ctx context.Context, events ...Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := s.db.WithContext(ctx).Create(&events).Error; err != nil {
		return fmt.Errorf("record %d events: %w", len(events), err)
	}
	s.log.Debug().Int("count", len(events)).Msg("recorded events")
	return nil
}

// Recent returns up to limit of the newest events, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Event, error) {
	var out []Event
	err := s.db.WithContext(ctx).
		Order("occurred_ms DESC").
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("recent events: %w", err)
	}
	slices.Reverse(out)
	return out, nil
}

// CountByType returns the number of stored events per type.
func (s *Store) CountByType(ctx context.Context) (map[string]int64, error) {
	var rows []struct {
		EventType string
		Count     int64
	}
	err := s.db.WithContext(ctx).
		Model(&Event{}).
		Select("event_type, count(*) AS count").
		Group("event_type").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count events: %w", err)
	}
	out := make(map[string]int64, len(rows))
	for _, r := range rows {
		out[r.EventType] = r.Count
	}
	return out, nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
