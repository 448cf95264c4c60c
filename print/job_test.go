package print

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testActions(n int) []Action {
	actions := make([]Action, n)
	for i := range actions {
		actions[i] = Action{Kind: ActionMove, E: float64(i)}
	}
	return actions
}

func TestJob_Start(t *testing.T) {
	j := NewJob()
	assert.Equal(t, PhaseStopped, j.Phase())
	assert.False(t, j.IsPrinting())

	require.NoError(t, j.Start(testActions(2)))
	assert.Equal(t, PhasePrinting, j.Phase())
	assert.True(t, j.IsPrinting())
	assert.Equal(t, 2, j.Remaining())

	// starting on top of a running job must not clobber it
	err := j.Start(testActions(1))
	var tErr *InvalidTransitionError
	require.ErrorAs(t, err, &tErr)
	assert.Equal(t, 2, j.Remaining())

	require.NoError(t, j.Pause())
	err = j.Start(testActions(1))
	require.ErrorAs(t, err, &tErr)
}

func TestJob_Start_empty(t *testing.T) {
	j := NewJob()

	// a job with nothing to do is complete on arrival
	require.NoError(t, j.Start(nil))
	assert.Equal(t, PhaseStopped, j.Phase())
}

func TestJob_Stop(t *testing.T) {
	j := NewJob()
	j.Stop() // idempotent from any phase
	assert.Equal(t, PhaseStopped, j.Phase())

	require.NoError(t, j.Start(testActions(3)))
	j.Stop()
	assert.Equal(t, PhaseStopped, j.Phase())
	assert.Equal(t, 0, j.Remaining())

	// restartable after stop
	require.NoError(t, j.Start(testActions(1)))
	assert.True(t, j.IsPrinting())
}

func TestJob_PauseResume(t *testing.T) {
	j := NewJob()

	var tErr *InvalidTransitionError
	require.ErrorAs(t, j.Pause(), &tErr)
	require.ErrorAs(t, j.Resume(), &tErr)

	require.NoError(t, j.Start(testActions(2)))
	require.NoError(t, j.Pause())
	assert.Equal(t, PhasePaused, j.Phase())
	require.NoError(t, j.Pause()) // no-op
	assert.Equal(t, PhasePaused, j.Phase())

	require.NoError(t, j.Resume())
	assert.Equal(t, PhasePrinting, j.Phase())
	require.NoError(t, j.Resume()) // no-op
	assert.Equal(t, PhasePrinting, j.Phase())
}

func TestJob_Next(t *testing.T) {
	j := NewJob()

	var tErr *InvalidTransitionError
	_, err := j.Next()
	require.ErrorAs(t, err, &tErr)
	_, err = j.Peek()
	require.ErrorAs(t, err, &tErr)

	actions := testActions(3)
	require.NoError(t, j.Start(actions))

	for i := 0; i < 3; i++ {
		head, err := j.Peek()
		require.NoError(t, err)
		assert.Equal(t, actions[i], head)

		a, err := j.Next()
		require.NoError(t, err)
		assert.Equal(t, actions[i], a)
	}

	// draining the queue completes the job
	assert.Equal(t, PhaseStopped, j.Phase())
	_, err = j.Next()
	require.ErrorAs(t, err, &tErr)
}

func TestJob_Next_whilePaused(t *testing.T) {
	j := NewJob()
	require.NoError(t, j.Start(testActions(2)))
	require.NoError(t, j.Pause())

	// dequeueing is valid while paused; the worker decides not to
	a, err := j.Next()
	require.NoError(t, err)
	assert.Equal(t, Action{Kind: ActionMove}, a)
}
