// Package store persists observations and collection runs in SQLite.
//
// Observations are append-only: a (kind, entity) pair is stored once, so the
// first time an entity was seen is never overwritten by later snapshots.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"
)

// Store defines the persistence operations the usecases depend on.
type Store interface {
	// AppendRun stores every stream of a snapshot together with the run
	// itself, atomically, and returns the new-row count per kind.
	AppendRun(ctx context.Context, run domain.Run, streams map[domain.Kind][]domain.Observation) (map[domain.Kind]int, error)
	// Observations returns every stored observation of kind, oldest first.
	Observations(ctx context.Context, kind domain.Kind) ([]domain.Observation, error)
	// Runs returns up to limit runs, most recent first.
	Runs(ctx context.Context, limit int) ([]domain.Run, error)
	Close() error
}

// event is one stored observation.
type event struct {
	ID         uint64    `gorm:"primaryKey"`
	Kind       string    `gorm:"not null;uniqueIndex:idx_kind_entity;index:idx_kind_time,priority:1"`
	EntityID   int64     `gorm:"not null;uniqueIndex:idx_kind_entity"`
	Login      string    `gorm:"not null;default:''"`
	OccurredAt time.Time `gorm:"not null;index:idx_kind_time,priority:2"`
	RunID      string    `gorm:"index"`
}

// run is one stored collection snapshot.
type run struct {
	ID            string    `gorm:"primaryKey"`
	Repo          string    `gorm:"not null"`
	StartedAt     time.Time `gorm:"not null;index"`
	FinishedAt    time.Time `gorm:"not null"`
	StoredStars   int       `gorm:"not null;default:0"`
	StoredForks   int       `gorm:"not null;default:0"`
	StoredWatches int       `gorm:"not null;default:0"`
}

// SQLiteStore is the gorm-backed Store.
type SQLiteStore struct {
	db     *gorm.DB
	logger zerolog.Logger
}

// Open opens (creating if needed) the database at path and migrates the
// schema. The returned store owns a pooled handle that Close releases.
func Open(path string, logger zerolog.Logger) (*SQLiteStore, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.Logger = db.Logger.LogMode(gormLogLevel(logger))
	if err := db.AutoMigrate(&event{}, &run{}); err != nil {
		_ = closeDB(db)
		return nil, fmt.Errorf("failed to migrate database %s: %w", path, err)
	}
	logger.Debug().Str("path", path).Msg("Opened observation store.")
	return &SQLiteStore{db: db, logger: logger}, nil
}

func gormLogLevel(l zerolog.Logger) gormlogger.LogLevel {
	if l.GetLevel() <= zerolog.DebugLevel {
		return gormlogger.Info
	}
	return gormlogger.Silent
}

func closeDB(db *gorm.DB) error {
	x, err := db.DB()
	if err != nil {
		return err
	}
	return x.Close()
}

// Close releases the underlying connection pool.
func (s *SQLiteStore) Close() error {
	return closeDB(s.db)
}

// AppendRun appends each stream and inserts the run row in a single
// transaction. Rows whose (kind, entity) already exist are skipped. Either
// the whole snapshot lands or none of it does, so no event ever references a
// missing run.
func (s *SQLiteStore) AppendRun(ctx context.Context, r domain.Run, streams map[domain.Kind][]domain.Observation) (map[domain.Kind]int, error) {
	stored := make(map[domain.Kind]int, len(domain.Kinds))
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, kind := range domain.Kinds {
			n, err := appendEvents(tx, kind, r.ID, streams[kind])
			if err != nil {
				return fmt.Errorf("failed to append %s observations: %w", kind, err)
			}
			stored[kind] = n
		}
		row := run{
			ID:            r.ID,
			Repo:          r.Repo,
			StartedAt:     r.StartedAt.UTC(),
			FinishedAt:    r.FinishedAt.UTC(),
			StoredStars:   stored[domain.KindStar],
			StoredForks:   stored[domain.KindFork],
			StoredWatches: stored[domain.KindWatch],
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to record run %s: %w", r.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("run", r.ID).
		Int("stars", stored[domain.KindStar]).
		Int("forks", stored[domain.KindFork]).
		Int("watchers", stored[domain.KindWatch]).
		Msg("Recorded run.")
	return stored, nil
}

func appendEvents(tx *gorm.DB, kind domain.Kind, runID string, observations []domain.Observation) (int, error) {
	if len(observations) == 0 {
		return 0, nil
	}
	rows := make([]event, 0, len(observations))
	for _, o := range observations {
		rows = append(rows, event{
			Kind:       kind.String(),
			EntityID:   o.EntityID,
			Login:      o.Login,
			OccurredAt: domain.NormalizeTime(o.Timestamp),
			RunID:      runID,
		})
	}
	result := tx.Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(&rows, 200)
	if result.Error != nil {
		return 0, result.Error
	}
	return int(result.RowsAffected), nil
}

func (s *SQLiteStore) Observations(ctx context.Context, kind domain.Kind) ([]domain.Observation, error) {
	var rows []event
	err := s.db.WithContext(ctx).
		Where("kind = ?", kind.String()).
		Order("occurred_at, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read %s observations: %w", kind, err)
	}
	observations := make([]domain.Observation, len(rows))
	for i, r := range rows {
		observations[i] = domain.Observation{
			EntityID:  r.EntityID,
			Login:     r.Login,
			Timestamp: domain.NormalizeTime(r.OccurredAt),
		}
	}
	return observations, nil
}

func (s *SQLiteStore) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []run
	err := s.db.WithContext(ctx).
		Order("started_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to read runs: %w", err)
	}
	runs := make([]domain.Run, len(rows))
	for i, r := range rows {
		runs[i] = domain.Run{
			ID:         r.ID,
			Repo:       r.Repo,
			StartedAt:  r.StartedAt.UTC(),
			FinishedAt: r.FinishedAt.UTC(),
			Stored: map[domain.Kind]int{
				domain.KindStar:  r.StoredStars,
				domain.KindFork:  r.StoredForks,
				domain.KindWatch: r.StoredWatches,
			},
		}
	}
	return runs, nil
}
