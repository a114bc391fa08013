package panicwatch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeActivator struct{ activated bool }

func (f *fakeActivator) ActivatePanic() { f.activated = true }

func TestPollActivatesOnceWhenRendezvousFileAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "PANIC")

	a := &fakeActivator{}
	w := New(path, a)

	w.poll()
	assert.False(t, a.activated, "must not trip before the file exists")

	require.NoError(t, os.WriteFile(path, []byte{}, 0644))
	w.poll()
	assert.True(t, a.activated)

	a.activated = false
	w.poll()
	assert.False(t, a.activated, "must only fire once")
}
