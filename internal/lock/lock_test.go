package lock

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/smuctl/internal/errors"
)

func TestAcquireExcludesSecondHolder(t *testing.T) {
	resource := "TCPIP0::lock-test-" + t.Name() + "::5025::SOCKET"

	held, err := Acquire(resource)
	require.NoError(t, err)
	defer held.Release()

	_, err = Acquire(resource)
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrResourceBusy))
}

func TestReleaseAllowsReacquire(t *testing.T) {
	resource := "TCPIP0::lock-test-" + t.Name() + "::5025::SOCKET"

	held, err := Acquire(resource)
	require.NoError(t, err)
	require.NoError(t, held.Release())

	again, err := Acquire(resource)
	require.NoError(t, err)
	assert.NoError(t, again.Release())
	assert.NoError(t, again.Release(), "double release is a no-op")
}

func TestDistinctResourcesDoNotConflict(t *testing.T) {
	first, err := Acquire("ASRL/dev/ttyUSB0::INSTR-" + t.Name())
	require.NoError(t, err)
	defer first.Release()

	second, err := Acquire("ASRL/dev/ttyUSB1::INSTR-" + t.Name())
	require.NoError(t, err)
	defer second.Release()
}

func TestStaleLockIsReclaimed(t *testing.T) {
	resource := "TCPIP0::lock-test-" + t.Name() + "::5025::SOCKET"

	// A pid beyond the kernel's pid space cannot belong to a live
	// process.
	require.NoError(t, os.WriteFile(lockPath(resource), []byte("99999999"), 0o600))

	held, err := Acquire(resource)
	require.NoError(t, err)
	assert.NoError(t, held.Release())
}

func TestNilLockRelease(t *testing.T) {
	var l *Lock
	assert.NoError(t, l.Release())
}
