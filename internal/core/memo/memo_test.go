package memo_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyiyo/wordcards-backend/internal/core/memo"
)

type fakeSynth struct {
	calls atomic.Int32
	gate  chan struct{}
	fail  atomic.Int32 // number of leading calls that fail
}

func (f *fakeSynth) Name() string   { return "fake" }
func (f *fakeSynth) Engine() string { return "fake-engine" }

func (f *fakeSynth) Synthesize(_ context.Context, text, voice string) ([]byte, error) {
	n := f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if n <= f.fail.Load() {
		return nil, errors.New("backend down")
	}
	return []byte(voice + ":" + text), nil
}

func newCache(t *testing.T, s *fakeSynth, max int) *memo.Cache {
	t.Helper()
	c, err := memo.New(s, max, memo.WithLogger(log.New(io.Discard)))
	require.NoError(t, err)
	return c
}

func TestGetOrSynthesize_Hit(t *testing.T) {
	t.Parallel()

	s := &fakeSynth{}
	c := newCache(t, s, 10)
	ctx := context.Background()

	first, err := c.GetOrSynthesize(ctx, "Dog", "Kore")
	require.NoError(t, err)
	second, err := c.GetOrSynthesize(ctx, "  Dog ", "Kore")
	require.NoError(t, err)

	assert.Equal(t, []byte("Kore:Dog"), first)
	assert.Equal(t, first, second)
	assert.EqualValues(t, 1, s.calls.Load())
	assert.True(t, c.Contains("Dog", "Kore"))
	assert.False(t, c.Contains("Dog", "Puck"))
}

func TestGetOrSynthesize_CoalescesConcurrentCallers(t *testing.T) {
	t.Parallel()

	s := &fakeSynth{gate: make(chan struct{})}
	c := newCache(t, s, 10)

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]byte, callers)
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errs[i] = c.GetOrSynthesize(context.Background(), "A dog barks.", "Kore")
		}()
	}

	require.Eventually(t, func() bool { return s.calls.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(s.gate)
	wg.Wait()

	assert.EqualValues(t, 1, s.calls.Load())
	for i := range callers {
		require.NoError(t, errs[i])
		assert.Equal(t, []byte("Kore:A dog barks."), results[i])
	}
}

func TestGetOrSynthesize_FailureIsNotCached(t *testing.T) {
	t.Parallel()

	s := &fakeSynth{}
	s.fail.Store(1)
	c := newCache(t, s, 10)
	ctx := context.Background()

	_, err := c.GetOrSynthesize(ctx, "Cat", "Kore")
	require.Error(t, err)
	assert.False(t, c.Contains("Cat", "Kore"))
	assert.Equal(t, 0, c.Len())

	got, err := c.GetOrSynthesize(ctx, "Cat", "Kore")
	require.NoError(t, err)
	assert.Equal(t, []byte("Kore:Cat"), got)
	assert.EqualValues(t, 2, s.calls.Load())
}

func TestGetOrSynthesize_EvictsInInsertionOrder(t *testing.T) {
	t.Parallel()

	s := &fakeSynth{}
	c := newCache(t, s, 3)
	ctx := context.Background()

	for _, w := range []string{"a", "b", "c"} {
		_, err := c.GetOrSynthesize(ctx, w, "Kore")
		require.NoError(t, err)
	}
	// A read of the oldest entry must not save it from eviction.
	_, err := c.GetOrSynthesize(ctx, "a", "Kore")
	require.NoError(t, err)

	_, err = c.GetOrSynthesize(ctx, "d", "Kore")
	require.NoError(t, err)

	assert.Equal(t, 3, c.Len())
	assert.False(t, c.Contains("a", "Kore"))
	assert.True(t, c.Contains("b", "Kore"))
	assert.True(t, c.Contains("c", "Kore"))
	assert.True(t, c.Contains("d", "Kore"))
}

func TestGetOrSynthesize_CallerCancelDoesNotAbortFlight(t *testing.T) {
	t.Parallel()

	s := &fakeSynth{gate: make(chan struct{})}
	c := newCache(t, s, 10)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := c.GetOrSynthesize(ctx, "Fish", "Kore")
		errCh <- err
	}()

	require.Eventually(t, func() bool { return s.calls.Load() == 1 }, time.Second, time.Millisecond)
	cancel()
	require.ErrorIs(t, <-errCh, context.Canceled)

	close(s.gate)
	require.Eventually(t, func() bool { return c.Contains("Fish", "Kore") }, time.Second, time.Millisecond)
	assert.EqualValues(t, 1, s.calls.Load())
}
