package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/montanaflynn/stats"
	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/naka-gawa/repo-history/internal/histogram"
	"github.com/naka-gawa/repo-history/internal/metrics"
	"github.com/naka-gawa/repo-history/internal/store"
	"github.com/rs/zerolog"
)

// Historian reads one observation stream and turns it into chart data.
type Historian struct {
	store  store.Store
	logger zerolog.Logger
	now    func() time.Time
}

// NewHistorian creates a Historian that buckets up to the current time.
func NewHistorian(s store.Store, logger zerolog.Logger) *Historian {
	return NewHistorianWithClock(s, logger, time.Now)
}

// NewHistorianWithClock creates a Historian whose grid ends at now().
func NewHistorianWithClock(s store.Store, logger zerolog.Logger, now func() time.Time) *Historian {
	return &Historian{store: s, logger: logger, now: now}
}

// History builds the chart of kind bucketed by the timespan token.
// An empty stream yields a chart with no rows and a YMax of zero.
func (h *Historian) History(ctx context.Context, kind domain.Kind, token string) (*domain.Chart, error) {
	span, err := histogram.ParseTimespan(token)
	if err != nil {
		return nil, err
	}

	timer := time.Now()
	defer func() {
		metrics.HistogramDuration.WithLabelValues(kind.String()).Observe(time.Since(timer).Seconds())
	}()

	observations, err := h.store.Observations(ctx, kind)
	if err != nil {
		return nil, err
	}
	rows, err := histogram.Compute(observations, span.Width, h.now())
	if err != nil {
		return nil, fmt.Errorf("failed to bucket %s observations: %w", kind, err)
	}

	chart := &domain.Chart{
		Title:    fmt.Sprintf("%s per %s", kind.Noun(), span.Token),
		Label:    kind.Field(),
		Kind:     kind,
		Timespan: span.Token,
		Labels:   make([]string, len(rows)),
		Values:   make([]int, len(rows)),
		Total:    len(observations),
		Rows:     rows,
	}
	for i, row := range rows {
		chart.Labels[i] = span.Format(row.Start)
		chart.Values[i] = row.Count
	}
	if chart.YMax, chart.Mean, err = summarize(chart.Values); err != nil {
		return nil, fmt.Errorf("failed to summarize %s histogram: %w", kind, err)
	}

	h.logger.Debug().
		Stringer("kind", kind).
		Str("timespan", span.Token).
		Int("observations", len(observations)).
		Int("buckets", len(rows)).
		Msg("Built history chart.")
	return chart, nil
}

// summarize returns the largest and mean count. No rows is the degenerate
// case and reports zero for both.
func summarize(values []int) (int, float64, error) {
	data := stats.LoadRawData(values)
	max, err := stats.Max(data)
	if errors.Is(err, stats.EmptyInputErr) {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return 0, 0, err
	}
	return int(max), mean, nil
}

// List returns the raw observations of kind, oldest first.
func (h *Historian) List(ctx context.Context, kind domain.Kind) ([]domain.Observation, error) {
	return h.store.Observations(ctx, kind)
}

// Runs returns the most recent collection runs.
func (h *Historian) Runs(ctx context.Context, limit int) ([]domain.Run, error) {
	return h.store.Runs(ctx, limit)
}
