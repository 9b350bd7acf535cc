package histogram

import (
	"math/rand"
	"testing"
	"time"

	"github.com/naka-gawa/repo-history/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func obs(id int64, offset time.Duration) domain.Observation {
	return domain.Observation{EntityID: id, Timestamp: t0.Add(offset)}
}

func TestCompute_Scenario(t *testing.T) {
	observations := []domain.Observation{
		obs(1, 0),
		obs(2, 3700*time.Second),
		obs(3, 3700*time.Second),
	}

	rows, err := Compute(observations, time.Hour, t0.Add(7200*time.Second))

	require.NoError(t, err)
	assert.Equal(t, []domain.HistogramRow{
		{Start: t0, Count: 1},
		{Start: t0.Add(time.Hour), Count: 2},
		{Start: t0.Add(2 * time.Hour), Count: 0},
	}, rows)
}

func TestCompute_EmptyInput(t *testing.T) {
	for _, width := range []time.Duration{time.Second, time.Hour, 7 * 24 * time.Hour} {
		rows, err := Compute(nil, width, t0)
		assert.NoError(t, err)
		assert.NotNil(t, rows)
		assert.Empty(t, rows)
	}
}

func TestCompute_BoundaryAssignment(t *testing.T) {
	// Boundaries sit at t0, t0+1h, t0+2h, t0+3h. An observation exactly on
	// t0+1h is found at search position 2 and lands in the bucket starting
	// at t0+1h, never in the one ending there.
	observations := []domain.Observation{
		obs(1, 0),
		obs(2, time.Hour),
		obs(3, time.Hour-time.Second),
	}

	rows, err := Compute(observations, time.Hour, t0.Add(150*time.Minute))

	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, 2, rows[0].Count)
	assert.Equal(t, 1, rows[1].Count)
	assert.Equal(t, t0.Add(time.Hour), rows[1].Start)
	assert.Equal(t, 0, rows[2].Count)
	assert.Equal(t, 0, rows[3].Count)
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	widths := []time.Duration{time.Minute, time.Hour, 24 * time.Hour, 7 * 24 * time.Hour, 90 * time.Second}

	for _, width := range widths {
		t.Run(width.String(), func(t *testing.T) {
			now := t0.Add(30 * 24 * time.Hour)
			var observations []domain.Observation
			minTS := now
			for i := 0; i < 500; i++ {
				ts := t0.Add(time.Duration(rng.Int63n(int64(30*24*time.Hour)/int64(time.Second))) * time.Second)
				if ts.Before(minTS) {
					minTS = ts
				}
				observations = append(observations, domain.Observation{EntityID: int64(i), Timestamp: ts})
			}

			rows, err := Compute(observations, width, now)
			require.NoError(t, err)
			require.NotEmpty(t, rows)

			// gap-free covering
			assert.Equal(t, minTS, rows[0].Start)
			for i := 1; i < len(rows); i++ {
				assert.Equal(t, width, rows[i].Start.Sub(rows[i-1].Start))
			}
			assert.False(t, rows[len(rows)-1].Start.Before(now), "last bucket must reach now")

			// conservation of count
			total := 0
			for _, r := range rows {
				assert.GreaterOrEqual(t, r.Count, 0)
				total += r.Count
			}
			assert.Equal(t, len(observations), total)

			// determinism with a frozen clock, regardless of input order
			shuffled := append([]domain.Observation(nil), observations...)
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			again, err := Compute(shuffled, width, now)
			require.NoError(t, err)
			assert.Equal(t, rows, again)
		})
	}
}

func TestCompute_BucketCount(t *testing.T) {
	testCases := []struct {
		name     string
		now      time.Time
		expected int
	}{
		{name: "now equals start", now: t0, expected: 1},
		{name: "exact multiple of width", now: t0.Add(3 * time.Hour), expected: 4},
		{name: "partial bucket rounds up", now: t0.Add(3*time.Hour + time.Second), expected: 5},
		{name: "sub-second now is truncated", now: t0.Add(999 * time.Millisecond), expected: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := Compute([]domain.Observation{obs(1, 0)}, time.Hour, tc.now)
			require.NoError(t, err)
			assert.Len(t, rows, tc.expected)
			assert.Equal(t, 1, rows[0].Count)
		})
	}
}

func TestCompute_Errors(t *testing.T) {
	testCases := []struct {
		name         string
		observations []domain.Observation
		width        time.Duration
		now          time.Time
		expectedErr  error
	}{
		{
			name:         "zero width",
			observations: []domain.Observation{obs(1, 0)},
			width:        0,
			now:          t0,
			expectedErr:  ErrInvalidTimespan,
		},
		{
			name:         "negative width on empty input is still rejected",
			observations: nil,
			width:        -time.Hour,
			now:          t0,
			expectedErr:  ErrInvalidTimespan,
		},
		{
			name:         "stale now leaves an observation past the final instant",
			observations: []domain.Observation{obs(1, 0), obs(2, 5*time.Hour)},
			width:        time.Hour,
			now:          t0.Add(2 * time.Hour),
			expectedErr:  ErrBucketOverflow,
		},
		{
			name:         "now before every observation",
			observations: []domain.Observation{obs(1, 0), obs(2, 2*time.Hour)},
			width:        time.Hour,
			now:          t0.Add(-24 * time.Hour),
			expectedErr:  ErrBucketOverflow,
		},
		{
			name:         "grid too large",
			observations: []domain.Observation{obs(1, 0)},
			width:        time.Second,
			now:          t0.Add(365 * 24 * time.Hour),
			expectedErr:  ErrTooManyBuckets,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := Compute(tc.observations, tc.width, tc.now)
			assert.ErrorIs(t, err, tc.expectedErr)
			assert.Nil(t, rows)
		})
	}
}

func TestCompute_ObservationAfterFinalInstant(t *testing.T) {
	testCases := []struct {
		name   string
		offset time.Duration
		now    time.Time
	}{
		{name: "seconds after now", offset: 2*time.Hour + 10*time.Second, now: t0.Add(2 * time.Hour)},
		{name: "inside the last bucket width", offset: 90 * time.Minute, now: t0.Add(time.Hour)},
		{name: "one second past the final instant", offset: time.Hour + time.Second, now: t0.Add(time.Hour)},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			rows, err := Compute([]domain.Observation{obs(1, 0), obs(2, tc.offset)}, time.Hour, tc.now)
			assert.ErrorIs(t, err, ErrBucketOverflow)
			assert.Nil(t, rows)
		})
	}
}

func TestCompute_ObservationOnFinalInstant(t *testing.T) {
	rows, err := Compute([]domain.Observation{obs(1, 0), obs(2, 2*time.Hour)}, time.Hour, t0.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int{1, 0, 1}, []int{rows[0].Count, rows[1].Count, rows[2].Count})
}

func TestCompute_TiesShareABucket(t *testing.T) {
	ts := 30 * time.Minute
	rows, err := Compute([]domain.Observation{obs(1, 0), obs(2, ts), obs(3, ts), obs(4, ts)}, time.Hour, t0.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 4, rows[0].Count)
	assert.Equal(t, 0, rows[1].Count)
}
