package cli

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/store"
)

func TestSessionsListsArchive(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	repo, err := store.NewRepository(store.Config{DBPath: dbPath})
	require.NoError(t, err)

	_, err = repo.SaveSeries(context.Background(), fixtureSeries(), store.OutcomeComplete)
	require.NoError(t, err)
	failed := fixtureSeries()
	failed.Readings = failed.Readings[:1]
	_, err = repo.SaveSeries(context.Background(), failed, store.OutcomeFailed("measure"))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	out, err := executeCommand(t, "sessions", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "ID")
	assert.Contains(t, out, "OUTCOME")
	assert.Contains(t, out, "TCPIP0::192.0.2.10::5025::SOCKET")
	assert.Contains(t, out, store.OutcomeComplete)
	assert.Contains(t, out, store.OutcomeFailed("measure"))
}

func TestSessionsEmptyArchive(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")

	dbPath := filepath.Join(t.TempDir(), "runs.db")
	repo, err := store.NewRepository(store.Config{DBPath: dbPath})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	out, err := executeCommand(t, "sessions", "--database", dbPath)
	require.NoError(t, err)
	assert.Contains(t, out, "No archived sessions.")
}

func TestSessionsDelete(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")
	dbPath, id := archiveFixture(t)

	out, err := executeCommand(t, "sessions", "--database", dbPath, "--delete", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Deleted session "+id)

	repo, err := store.NewRepository(store.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	sessions, err := repo.ListSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestResourcesCommandRuns(t *testing.T) {
	out, err := executeCommand(t, "resources")
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}
