package histogram

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimespan(t *testing.T) {
	testCases := []struct {
		token         string
		expectedWidth time.Duration
		expectedLabel LabelFormat
		expectError   bool
	}{
		{token: "hour", expectedWidth: time.Hour, expectedLabel: LabelHour},
		{token: "day", expectedWidth: 86400 * time.Second, expectedLabel: LabelDay},
		{token: "week", expectedWidth: 604800 * time.Second, expectedLabel: LabelDay},
		{token: "", expectedWidth: 86400 * time.Second, expectedLabel: LabelDay},
		{token: "900", expectedWidth: 900 * time.Second, expectedLabel: LabelHour},
		{token: "fortnight", expectError: true},
		{token: "0", expectError: true},
		{token: "-60", expectError: true},
		{token: "1.5", expectError: true},
		{token: "99999999999999", expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.token, func(t *testing.T) {
			ts, err := ParseTimespan(tc.token)
			if tc.expectError {
				assert.ErrorIs(t, err, ErrInvalidTimespan)
				assert.Zero(t, ts.Width)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expectedWidth, ts.Width)
			assert.Equal(t, tc.expectedLabel, ts.Label)
		})
	}
}

func TestTimespan_Format(t *testing.T) {
	at := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)

	hour, _ := ParseTimespan("hour")
	day, _ := ParseTimespan("day")

	assert.Equal(t, "2024/01/02 15", hour.Format(at))
	assert.Equal(t, "2024/01/02", day.Format(at))
}
