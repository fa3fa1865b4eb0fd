package mux

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocateFailsWhenNoBinaryOnPath(t *testing.T) {
	reset()
	t.Setenv("PATH", t.TempDir())
	defer reset()

	_, err := Locate()
	require.Error(t, err)
}

func TestLocateIsMemoizedAcrossCalls(t *testing.T) {
	reset()
	defer reset()

	dir := t.TempDir()
	t.Setenv("PATH", dir)

	first, firstErr := Locate()

	// Even if PATH changes afterward, Locate must not re-probe.
	t.Setenv("PATH", dir+":/usr/bin")
	second, secondErr := Locate()

	assert.Equal(t, first, second)
	assert.Equal(t, firstErr, secondErr)
}

func TestNewDriverNeverFailsConstruction(t *testing.T) {
	reset()
	t.Setenv("PATH", t.TempDir())
	defer reset()

	d := NewDriver()
	assert.Equal(t, "", d.binaryPath)
}
