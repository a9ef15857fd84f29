package cli

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/errors"
	"codeberg.org/mutker/smuctl/internal/export"
	"codeberg.org/mutker/smuctl/internal/lock"
	"codeberg.org/mutker/smuctl/internal/store"
)

const testIdentity = "ACME,MODEL 2400,1234,C30"

// startInstrument serves a scripted SCPI instrument on a loopback
// socket: it answers *IDN? with a fixed identity and :READ? with the
// given responses in order. Returns the resource string to dial.
func startInstrument(t *testing.T, readings []string) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		reader := bufio.NewReader(conn)
		next := 0
		for {
			line, err := reader.ReadString('\n')
			if err != nil {
				return
			}
			switch strings.TrimSpace(line) {
			case "*IDN?":
				fmt.Fprintf(conn, "%s\n", testIdentity)
			case ":READ?":
				if next < len(readings) {
					fmt.Fprintf(conn, "%s\n", readings[next])
					next++
				}
			}
		}
	}()

	port := ln.Addr().(*net.TCPAddr).Port

	return fmt.Sprintf("TCPIP0::127.0.0.1::%d::SOCKET", port)
}

func TestAcquireEndToEnd(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")
	resource := startInstrument(t, []string{"1,0.001", "-1,-0.001", "2,0.0005"})

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "run.csv")
	dbPath := filepath.Join(tmpDir, "runs.db")

	out, err := executeCommand(t, "acquire",
		"--resource", resource,
		"--readings", "3",
		"--interval", "0s",
		"--csv", csvPath,
		"--database", dbPath,
	)
	require.NoError(t, err)
	assert.Contains(t, out, "Collected 3 readings")
	assert.Contains(t, out, testIdentity)
	assert.Contains(t, out, "peak 1000 µW")
	assert.Contains(t, out, "Archived session")
	assert.Contains(t, out, "Wrote "+csvPath)

	readings, err := export.ReadFile(csvPath)
	require.NoError(t, err)
	require.Len(t, readings, 3)
	assert.InDelta(t, 1.0, readings[0].Voltage, 1e-12)
	assert.InDelta(t, -0.001, readings[1].Current, 1e-12)
	assert.InDelta(t, 0.0005, readings[2].Current, 1e-12)

	repo, err := store.NewRepository(store.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	sessions, err := repo.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, store.OutcomeComplete, sessions[0].Outcome)
	assert.Equal(t, 3, sessions[0].Readings)
	assert.Equal(t, testIdentity, sessions[0].Instrument)
}

func TestAcquirePartialFailureStillPersists(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")
	resource := startInstrument(t, []string{"1,0.001", "bad,data,extra"})

	tmpDir := t.TempDir()
	csvPath := filepath.Join(tmpDir, "partial.csv")
	dbPath := filepath.Join(tmpDir, "runs.db")

	out, err := executeCommand(t, "acquire",
		"--resource", resource,
		"--readings", "5",
		"--interval", "0s",
		"--csv", csvPath,
		"--database", dbPath,
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "measure")
	assert.Contains(t, out, "Kept 1 partial readings")

	readings, err := export.ReadFile(csvPath)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.InDelta(t, 1.0, readings[0].Voltage, 1e-12)

	repo, err := store.NewRepository(store.Config{DBPath: dbPath})
	require.NoError(t, err)
	defer repo.Close()

	sessions, err := repo.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, store.OutcomeFailed("measure"), sessions[0].Outcome)
	assert.Equal(t, 1, sessions[0].Readings)
}

func TestAcquireConnectFailureKeepsNothing(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")

	// Nothing listens on the discard port.
	out, err := executeCommand(t, "acquire",
		"--resource", "TCPIP0::127.0.0.1::9::SOCKET",
		"--readings", "2",
		"--timeout", "200ms",
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connect")
	assert.NotContains(t, out, "Kept")
}

func TestAcquireRequiresResource(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")

	_, err := executeCommand(t, "acquire", "--readings", "2")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrMissingConfig))
	assert.Contains(t, err.Error(), "resource")
}

func TestAcquireRefusesBusyResource(t *testing.T) {
	t.Setenv("SMUCTL_CONFIG", "")
	resource := "TCPIP0::192.0.2.77::5025::SOCKET"

	held, err := lock.Acquire(resource)
	require.NoError(t, err)
	defer held.Release()

	_, err = executeCommand(t, "acquire", "--resource", resource)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrResourceBusy))
}
