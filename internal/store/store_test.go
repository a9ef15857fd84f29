package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/series"
)

func openTestRepository(t *testing.T) Repository {
	t.Helper()

	repo, err := NewRepository(Config{DBPath: filepath.Join(t.TempDir(), "archive", "smuctl.db")})
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	return repo
}

func archivedSeries(startedAt time.Time) *series.Series {
	return &series.Series{
		Instrument: "KEITHLEY INSTRUMENTS INC.,MODEL 2400,1234567,C30",
		StartedAt:  startedAt,
		Setup: series.Setup{
			Resource:   "TCPIP0::192.168.0.24::5025::SOCKET",
			Voltage:    1.0,
			Compliance: 0.1,
			Requested:  3,
			Interval:   500 * time.Millisecond,
		},
		Readings: []series.Reading{
			{Voltage: 1.0, Current: 0.001, Elapsed: 12 * time.Millisecond},
			{Voltage: -1.0, Current: -0.001, Elapsed: 512 * time.Millisecond},
			{Voltage: 2.0, Current: 0.0005, Elapsed: 1012 * time.Millisecond},
		},
	}
}

func TestSaveAndLoadSeries(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()
	original := archivedSeries(time.Now())

	id, err := repo.SaveSeries(ctx, original, OutcomeComplete)
	require.NoError(t, err)
	require.NotEmpty(t, id)

	loaded, err := repo.LoadSeries(ctx, id)
	require.NoError(t, err)

	assert.True(t, loaded.StartedAt.Equal(original.StartedAt), "start time survives the round trip")
	assert.Equal(t, original.Instrument, loaded.Instrument)
	assert.Equal(t, original.Setup, loaded.Setup)
	require.Len(t, loaded.Readings, 3)
	assert.Equal(t, original.Readings, loaded.Readings)
}

func TestLoadMissingSession(t *testing.T) {
	repo := openTestRepository(t)

	_, err := repo.LoadSeries(context.Background(), "no-such-session")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrSessionNotFound))
}

func TestListSessionsNewestFirst(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	older := archivedSeries(time.Now().Add(-time.Hour))
	newer := archivedSeries(time.Now())

	olderID, err := repo.SaveSeries(ctx, older, OutcomeComplete)
	require.NoError(t, err)
	newerID, err := repo.SaveSeries(ctx, newer, OutcomeFailed("measure"))
	require.NoError(t, err)

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.Equal(t, newerID, sessions[0].ID)
	assert.Equal(t, olderID, sessions[1].ID)
	assert.Equal(t, "failed:measure", sessions[0].Outcome)
	assert.Equal(t, OutcomeComplete, sessions[1].Outcome)
	assert.Equal(t, 3, sessions[0].Readings)
	assert.Equal(t, older.Setup.Resource, sessions[1].Resource)
	assert.Contains(t, sessions[0].Instrument, "MODEL 2400")
}

func TestDeleteSession(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	id, err := repo.SaveSeries(ctx, archivedSeries(time.Now()), OutcomeComplete)
	require.NoError(t, err)

	require.NoError(t, repo.DeleteSession(ctx, id))

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)

	_, err = repo.LoadSeries(ctx, id)
	assert.True(t, errors.HasCode(err, ErrSessionNotFound))

	err = repo.DeleteSession(ctx, id)
	assert.True(t, errors.HasCode(err, ErrSessionNotFound))
}

func TestEmptySeriesArchives(t *testing.T) {
	repo := openTestRepository(t)
	ctx := context.Background()

	s := archivedSeries(time.Now())
	s.Readings = nil

	id, err := repo.SaveSeries(ctx, s, OutcomeFailed("connect"))
	require.NoError(t, err)

	loaded, err := repo.LoadSeries(ctx, id)
	require.NoError(t, err)
	assert.Zero(t, loaded.Len())
}

func TestNewRepositoryRejectsEmptyPath(t *testing.T) {
	_, err := NewRepository(Config{})
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, ErrInvalidDBPath))
}
