package store

import (
	"context"
	"time"

	"codeberg.org/mutker/smuctl/internal/series"
)

// Session outcomes as recorded in the archive.
const OutcomeComplete = "complete"

// OutcomeFailed records the stage at which a run failed.
func OutcomeFailed(stage string) string {
	return "failed:" + stage
}

// SessionInfo is the archive metadata of one run.
type SessionInfo struct {
	ID         string
	StartedAt  time.Time
	Resource   string
	Instrument string
	Outcome    string
	Readings   int
}

// Repository archives measurement series. Safe for concurrent use.
type Repository interface {
	// SaveSeries archives a series under a fresh session id.
	SaveSeries(ctx context.Context, s *series.Series, outcome string) (string, error)
	// LoadSeries reassembles a session into a series.
	LoadSeries(ctx context.Context, id string) (*series.Series, error)
	// ListSessions returns archive metadata, newest first.
	ListSessions(ctx context.Context) ([]SessionInfo, error)
	// DeleteSession removes a session and its readings.
	DeleteSession(ctx context.Context, id string) error
	Close() error
}
