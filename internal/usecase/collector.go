// Package usecase contains the business logic of the application.
package usecase

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/naka-gawa/repo-history/internal/gateway"
	"github.com/naka-gawa/repo-history/internal/metrics"
	"github.com/naka-gawa/repo-history/internal/store"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// Collector is the use case for snapshotting a repository's stargazers,
// forks and watchers into the store.
type Collector struct {
	fetcher gateway.Fetcher
	store   store.Store
	logger  zerolog.Logger
	now     func() time.Time
	newID   func() string
}

// NewCollector creates a new Collector instance.
func NewCollector(fetcher gateway.Fetcher, s store.Store, logger zerolog.Logger) *Collector {
	return &Collector{
		fetcher: fetcher,
		store:   s,
		logger:  logger,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// Collect fetches all three streams concurrently and appends them to the
// store under a fresh run, in one store transaction. Watchers carry no timestamp on GitHub, so they are
// stamped with the run's start time.
func (c *Collector) Collect(ctx context.Context, repo string) (*domain.Run, error) {
	owner, name, err := gateway.ParseRepo(repo)
	if err != nil {
		return nil, err
	}

	run := &domain.Run{
		ID:        c.newID(),
		Repo:      owner + "/" + name,
		StartedAt: domain.NormalizeTime(c.now()),
	}
	log := c.logger.With().Str("run", run.ID).Str("repo", run.Repo).Logger()
	log.Info().Msg("Usecase: Starting collection...")
	timer := time.Now()

	var stars, forks, watchers []domain.Observation

	// Use an errgroup to fetch all streams concurrently.
	eg, egCtx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		var err error
		stars, err = c.fetcher.FetchStargazers(egCtx, owner, name)
		return err
	})

	eg.Go(func() error {
		var err error
		forks, err = c.fetcher.FetchForks(egCtx, owner, name)
		return err
	})

	eg.Go(func() error {
		var err error
		watchers, err = c.fetcher.FetchWatchers(egCtx, owner, name)
		return err
	})

	if err := eg.Wait(); err != nil {
		metrics.CollectErrors.Inc()
		return nil, err
	}
	log.Debug().Msg("Usecase: All streams fetched successfully.")

	for i := range watchers {
		if watchers[i].Timestamp.IsZero() {
			watchers[i].Timestamp = run.StartedAt
		}
	}

	streams := map[domain.Kind][]domain.Observation{
		domain.KindStar:  stars,
		domain.KindFork:  forks,
		domain.KindWatch: watchers,
	}
	for _, kind := range domain.Kinds {
		metrics.ObservationsFetched.WithLabelValues(kind.String()).Add(float64(len(streams[kind])))
	}

	run.FinishedAt = domain.NormalizeTime(c.now())
	stored, err := c.store.AppendRun(ctx, *run, streams)
	if err != nil {
		metrics.CollectErrors.Inc()
		return nil, err
	}
	for _, kind := range domain.Kinds {
		metrics.ObservationsStored.WithLabelValues(kind.String()).Add(float64(stored[kind]))
	}
	run.Stored = stored
	metrics.CollectDuration.Observe(time.Since(timer).Seconds())

	log.Info().
		Int("stars", run.Stored[domain.KindStar]).
		Int("forks", run.Stored[domain.KindFork]).
		Int("watchers", run.Stored[domain.KindWatch]).
		Msg("Usecase: Collection complete.")
	return run, nil
}

// Poll collects immediately and then once per interval until ctx is done.
// Failed runs are logged and do not stop the loop. A non-positive interval
// disables polling.
func (c *Collector) Poll(ctx context.Context, repo string, interval time.Duration) error {
	if interval <= 0 {
		c.logger.Info().Msg("Background collection disabled.")
		return nil
	}
	if _, _, err := gateway.ParseRepo(repo); err != nil {
		return fmt.Errorf("failed to start polling: %w", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, err := c.Collect(ctx, repo); err != nil && ctx.Err() == nil {
			c.logger.Error().Err(err).Str("repo", repo).Msg("Collection failed.")
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
