package instance

import (
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func socketPath(t *testing.T) string {
	t.Helper()

	dir, err := os.MkdirTemp("", "rl")
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.RemoveAll(dir) })

	return filepath.Join(dir, "s.sock")
}

// TestAcquire_SecondInstanceSignalsFirst keeps exactly one server and
// delivers the Show signal to it.
func TestAcquire_SecondInstanceSignalsFirst(t *testing.T) {
	t.Parallel()

	path := socketPath(t)

	var shown atomic.Int32

	first, err := Acquire(context.Background(), path, time.Second, PresenterFunc(func(context.Context) {
		shown.Add(1)
	}))
	require.NoError(t, err)

	defer func() {
		require.NoError(t, first.Close())
	}()

	second, err := Acquire(context.Background(), path, time.Second, nil)
	require.ErrorIs(t, err, ErrAlreadyRunning)
	require.Nil(t, second)
	require.Equal(t, int32(1), shown.Load())
	require.FileExists(t, path)
}

// TestAcquire_RemovesStaleSocket takes over a socket file nobody serves.
func TestAcquire_RemovesStaleSocket(t *testing.T) {
	t.Parallel()

	path := socketPath(t)
	require.NoError(t, os.WriteFile(path, []byte("stale"), 0o600))

	guard, err := Acquire(context.Background(), path, 200*time.Millisecond, nil)
	require.NoError(t, err)
	require.Equal(t, path, guard.SocketPath())

	require.NoError(t, guard.Close())
	require.NoFileExists(t, path)
	require.NoError(t, guard.Close())
}

// TestAcquire_BindFailure reports sockets that cannot be created.
func TestAcquire_BindFailure(t *testing.T) {
	t.Parallel()

	path := filepath.Join(socketPath(t), "missing", "s.sock")

	_, err := Acquire(context.Background(), path, 100*time.Millisecond, nil)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrAlreadyRunning)
}
