package histogram

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// LabelFormat selects how a bucket start is rendered on the chart axis.
type LabelFormat int

const (
	LabelHour LabelFormat = iota
	LabelDay
)

// Layout returns the time layout for the format.
func (f LabelFormat) Layout() string {
	if f == LabelDay {
		return "2006/01/02"
	}
	return "2006/01/02 15"
}

// Timespan is a parsed timespan token: the bucket width and its label format.
type Timespan struct {
	Token string
	Width time.Duration
	Label LabelFormat
}

// DefaultTimespan is used when the caller supplies no token.
const DefaultTimespan = "day"

// ParseTimespan maps "hour", "day" and "week" to their widths. Any other
// token must be a positive decimal count of seconds.
func ParseTimespan(token string) (Timespan, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		token = DefaultTimespan
	}
	switch token {
	case "hour":
		return Timespan{Token: token, Width: time.Hour, Label: LabelHour}, nil
	case "day":
		return Timespan{Token: token, Width: 24 * time.Hour, Label: LabelDay}, nil
	case "week":
		return Timespan{Token: token, Width: 7 * 24 * time.Hour, Label: LabelDay}, nil
	}
	seconds, err := strconv.ParseInt(token, 10, 64)
	if err != nil {
		return Timespan{}, fmt.Errorf("%w: %q is not hour, day, week or a number of seconds", ErrInvalidTimespan, token)
	}
	if seconds <= 0 || seconds > int64(maxWidth/time.Second) {
		return Timespan{}, fmt.Errorf("%w: %d seconds is out of range", ErrInvalidTimespan, seconds)
	}
	return Timespan{Token: token, Width: time.Duration(seconds) * time.Second, Label: LabelHour}, nil
}

// Format renders a bucket start with the timespan's label layout.
func (ts Timespan) Format(t time.Time) string {
	return t.UTC().Format(ts.Label.Layout())
}

// maxWidth keeps Width inside time.Duration; roughly 290 years.
const maxWidth = time.Duration(1<<63 - 1)
