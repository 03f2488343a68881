package runlock

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLock_Exclusive(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")
	a := New(dir)
	b := New(dir)

	require.NoError(t, a.TryLock())
	assert.FileExists(t, a.Path())
	assert.ErrorIs(t, a.TryLock(), ErrHeld, "same lock is not reentrant")
	assert.ErrorIs(t, b.TryLock(), ErrHeld, "second handle on the same file is refused")

	require.NoError(t, a.Unlock())
	require.NoError(t, b.TryLock())
	require.NoError(t, b.Unlock())
}

func TestLock_UnlockIdempotent(t *testing.T) {
	l := New(t.TempDir())
	assert.NoError(t, l.Unlock())
	require.NoError(t, l.TryLock())
	assert.NoError(t, l.Unlock())
	assert.NoError(t, l.Unlock())
}
