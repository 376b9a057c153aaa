package systems

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidates(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)
	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestSubmitCallsHooks(t *testing.T) {
	js, err := NewJobSystem(2, 4)
	require.NoError(t, err)

	var completed, failed atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		fail := i%2 == 0
		js.Submit(Job{
			Run: func() error {
				if fail {
					return boom
				}
				return nil
			},
			OnFailure:  func(err error) { assert.ErrorIs(t, err, boom); failed.Add(1) },
			OnComplete: func() { completed.Add(1) },
		})
	}
	js.Shutdown()
	js.Shutdown()

	assert.Equal(t, int32(5), completed.Load())
	assert.Equal(t, int32(5), failed.Load())
}

func TestRunAll(t *testing.T) {
	js, err := NewJobSystem(3, 0)
	require.NoError(t, err)
	defer js.Shutdown()

	results := make([]int, 8)
	fns := make([]func() error, len(results))
	for i := range fns {
		fns[i] = func() error {
			results[i] = i * i
			return nil
		}
	}
	require.NoError(t, js.RunAll(fns...))
	assert.Equal(t, []int{0, 1, 4, 9, 16, 25, 36, 49}, results)

	first, second := errors.New("first"), errors.New("second")
	err = js.RunAll(
		func() error { return nil },
		func() error { return first },
		func() error { return second },
	)
	assert.ErrorIs(t, err, first)
	// Later errors are attached as secondary errors.
	assert.Contains(t, fmt.Sprintf("%+v", err), "second")

	assert.NoError(t, js.RunAll())
}
