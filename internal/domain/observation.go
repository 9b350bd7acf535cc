// Package domain contains the core data structures and domain logic for the application.
package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrUnknownKind is returned when a kind token names no observation stream.
var ErrUnknownKind = errors.New("unknown observation kind")

// Kind selects one of the observation streams tracked for a repository.
// Streams are stored and bucketed separately and are never merged.
type Kind int

const (
	KindStar Kind = iota + 1
	KindFork
	KindWatch
)

// Kinds lists every stream in collection order.
var Kinds = []Kind{KindStar, KindFork, KindWatch}

// String returns the storage key of the kind.
func (k Kind) String() string {
	switch k {
	case KindStar:
		return "star"
	case KindFork:
		return "fork"
	case KindWatch:
		return "watch"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Noun is the plural used in chart titles.
func (k Kind) Noun() string {
	switch k {
	case KindStar:
		return "Stars"
	case KindFork:
		return "Forks"
	case KindWatch:
		return "Watchers"
	default:
		return "Events"
	}
}

// Field names the timestamp a chart series is drawn from.
func (k Kind) Field() string {
	switch k {
	case KindStar:
		return "starred_time"
	case KindFork:
		return "forked_time"
	case KindWatch:
		return "watched_time"
	default:
		return "time"
	}
}

// Path is the URL segment used by the HTTP presenter.
func (k Kind) Path() string {
	switch k {
	case KindStar:
		return "stars"
	case KindFork:
		return "forks"
	case KindWatch:
		return "watchers"
	default:
		return k.String()
	}
}

// ParseKind accepts singular and plural forms, e.g. "star" or "stars".
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "star", "stars", "stargazer", "stargazers":
		return KindStar, nil
	case "fork", "forks":
		return KindFork, nil
	case "watch", "watches", "watcher", "watchers":
		return KindWatch, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Observation is one timestamped occurrence of an entity starring, forking
// or watching the tracked repository. Observations are immutable once stored.
type Observation struct {
	EntityID  int64     `json:"entity_id"`
	Login     string    `json:"login"`
	Timestamp time.Time `json:"timestamp"`
}

// NormalizeTime drops sub-second precision and location so that timestamps
// compare as naive seconds.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// Run records a single collection snapshot.
type Run struct {
	ID         string       `json:"id"`
	Repo       string       `json:"repo"`
	StartedAt  time.Time    `json:"started_at"`
	FinishedAt time.Time    `json:"finished_at"`
	Stored     map[Kind]int `json:"stored"`
}
