package training

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunStateStartOnce(t *testing.T) {
	s := newRunState()

	assert.True(t, s.tryStart())
	assert.False(t, s.tryStart(), "second start must be refused")

	s.finish(5)
	assert.True(t, s.tryStart(), "start must succeed after finish")
}

func TestRunStateSnapshotIsCopy(t *testing.T) {
	s := newRunState()
	require.True(t, s.tryStart())
	s.setProgress("[1/3] Wooden Train", 1, 3)

	snap := s.snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, "[1/3] Wooden Train", snap.Progress)
	assert.Equal(t, 1, snap.Current)
	assert.Equal(t, 3, snap.Total)

	// Mutating after the snapshot must not affect it
	s.setProgress("[2/3] Puzzle Cube", 2, 3)
	assert.Equal(t, "[1/3] Wooden Train", snap.Progress)
}

func TestRunStateFinishKeepsProgress(t *testing.T) {
	s := newRunState()
	require.True(t, s.tryStart())
	s.setProgress("ERROR: no sales data available", 0, 0)
	s.finish(-1)

	snap := s.snapshot()
	assert.False(t, snap.Running)
	assert.Equal(t, "ERROR: no sales data available", snap.Progress)
	assert.Equal(t, 0, snap.Results, "failed run must not update results count")
}

func TestRunStateListeners(t *testing.T) {
	s := newRunState()

	ch := s.subscribe()
	first := <-ch
	assert.False(t, first.Running)
	assert.Equal(t, "idle", first.Progress)

	require.True(t, s.tryStart())
	next := <-ch
	assert.True(t, next.Running)

	s.unsubscribe(ch)
	_, open := <-ch
	assert.False(t, open, "channel must be closed after unsubscribe")

	// Unsubscribing twice is harmless
	s.unsubscribe(ch)
}

func TestRunStateSlowListenerDoesNotBlock(t *testing.T) {
	s := newRunState()
	ch := s.subscribe()
	defer s.unsubscribe(ch)

	// Overflow the buffer; setProgress must never block
	require.True(t, s.tryStart())
	for i := 0; i < 100; i++ {
		s.setProgress("update", i, 100)
	}
	s.finish(1)

	snap := s.snapshot()
	assert.False(t, snap.Running)
}
