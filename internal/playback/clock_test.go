package playback

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClock_Controls(t *testing.T) {
	c := NewClock(2, 0)
	assert.Equal(t, State{Time: 0, MaxTime: 2, Playing: false}, c.State())

	assert.True(t, c.Play().Playing)
	assert.False(t, c.Pause().Playing)
	assert.True(t, c.Toggle().Playing)
	assert.False(t, c.Toggle().Playing)

	assert.Equal(t, 1.5, c.Seek(1.5).Time)
	assert.Equal(t, 2.0, c.Seek(10).Time)
	assert.Equal(t, 0.0, c.Seek(-3).Time)

	c.Seek(1)
	c.Play()
	s := c.Reset()
	assert.Equal(t, 0.0, s.Time)
	assert.False(t, s.Playing)
}

func TestClock_AdvanceClampsAndPauses(t *testing.T) {
	c := NewClock(0.12, DefaultStep)
	c.Play()

	s := c.Advance()
	assert.InDelta(t, 0.05, s.Time, 1e-9)
	assert.True(t, s.Playing)

	s = c.Advance()
	assert.InDelta(t, 0.10, s.Time, 1e-9)

	s = c.Advance()
	assert.Equal(t, 0.12, s.Time)
	assert.False(t, s.Playing)
}

func TestClock_EmptyRange(t *testing.T) {
	c := NewClock(-1, 0)
	c.Play()
	s := c.Advance()
	assert.Equal(t, State{Time: 0, MaxTime: 0, Playing: false}, s)
}

func TestClock_Run(t *testing.T) {
	c := NewClock(0.15, DefaultStep)

	var (
		mu     sync.Mutex
		states []State
	)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- c.Run(ctx, time.Millisecond, func(s State) {
			mu.Lock()
			states = append(states, s)
			mu.Unlock()
		})
	}()

	c.Play()
	require.Eventually(t, func() bool { return !c.State().Playing }, time.Second, time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	last := states[len(states)-1]
	assert.Equal(t, 0.15, last.Time)
	assert.False(t, last.Playing)
	assert.Equal(t, 0.15, c.State().Time)
}
