// Package histogram turns an unordered set of timestamped observations into a
// gap-free, fixed-width histogram suitable for charting.
//
// The grid is anchored at the earliest observation and always extends through
// "now", so the rightmost bucket reflects the present even when nothing was
// observed recently. Compute performs no I/O and holds no state.
package histogram

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/naka-gawa/repo-history/internal/domain"
)

var (
	// ErrInvalidTimespan is returned for a timespan token or width that
	// cannot be used as a bucket width.
	ErrInvalidTimespan = errors.New("invalid timespan")
	// ErrBucketOverflow is returned when an observation falls after the
	// grid's final instant, e.g. because the clock lags behind the data.
	ErrBucketOverflow = errors.New("observation falls after the last bucket")
	// ErrTooManyBuckets is returned when the grid would exceed MaxBuckets.
	ErrTooManyBuckets = errors.New("too many buckets")
)

// MaxBuckets bounds the size of a single grid.
const MaxBuckets = 1 << 20

// Compute buckets observations into rows of the given width, covering
// [min(timestamp), now]. Rows are ascending and consecutive starts differ by
// exactly width; buckets without observations have a zero count.
//
// An observation at t is located with a right-biased search over the grid
// boundaries, so it belongs to the row starting at the greatest boundary
// <= t. An observation exactly on a boundary is therefore counted after it.
// The last row is closed at its start: an observation after the final grid
// instant is rejected with ErrBucketOverflow.
//
// Empty input yields an empty, non-nil slice.
func Compute(observations []domain.Observation, width time.Duration, now time.Time) ([]domain.HistogramRow, error) {
	if width < time.Second {
		return nil, fmt.Errorf("%w: width %s must be at least one second", ErrInvalidTimespan, width)
	}
	if len(observations) == 0 {
		return []domain.HistogramRow{}, nil
	}

	start := domain.NormalizeTime(observations[0].Timestamp)
	for _, o := range observations[1:] {
		if t := domain.NormalizeTime(o.Timestamp); t.Before(start) {
			start = t
		}
	}
	end := domain.NormalizeTime(now)

	count, err := bucketCount(start, end, width)
	if err != nil {
		return nil, err
	}

	grid := make([]time.Time, count)
	grid[0] = start
	for i := 1; i < count; i++ {
		grid[i] = grid[i-1].Add(width)
	}
	last := grid[count-1]

	tally := make([]int, count)
	for _, o := range observations {
		t := domain.NormalizeTime(o.Timestamp)
		if t.After(last) {
			return nil, fmt.Errorf("%w: %s is after %s", ErrBucketOverflow,
				t.Format(time.DateTime), last.Format(time.DateTime))
		}
		pos := sort.Search(count, func(i int) bool { return grid[i].After(t) })
		tally[pos-1]++
	}

	rows := make([]domain.HistogramRow, count)
	for i := range rows {
		rows[i] = domain.HistogramRow{Start: grid[i], Count: tally[i]}
	}
	return rows, nil
}

// bucketCount returns ceil((end-start)/width) + 1, and at least 1 when end
// is before start.
func bucketCount(start, end time.Time, width time.Duration) (int, error) {
	elapsed := end.Sub(start)
	if elapsed <= 0 {
		return 1, nil
	}
	n := int64(elapsed / width)
	if elapsed%width != 0 {
		n++
	}
	n++
	if n > MaxBuckets {
		return 0, fmt.Errorf("%w: %d buckets of %s exceed the limit of %d", ErrTooManyBuckets, n, width, MaxBuckets)
	}
	return int(n), nil
}
