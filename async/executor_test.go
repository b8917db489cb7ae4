package async

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/indigo-web/exchange/config"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func newExecutor(t *testing.T, workers int) *Executor {
	cfg := config.Default().Async
	cfg.Workers = workers
	e := NewExecutor(cfg, zerolog.Nop())
	t.Cleanup(e.Stop)

	return e
}

// scripted runs the steps one by one and records everything happened to it.
type scripted struct {
	steps     []func() Action
	onError   func(err error) Action
	errs      []error
	finalized int
	finalErr  error
}

func (s *scripted) Act() Action {
	step := s.steps[0]
	s.steps = s.steps[1:]
	return step()
}

func (s *scripted) HandleError(err error) Action {
	s.errs = append(s.errs, err)
	if s.onError != nil {
		return s.onError(err)
	}

	return Error(err)
}

func (s *scripted) Finalize(err error) {
	s.finalized++
	s.finalErr = err
}

func TestExecutor(t *testing.T) {
	errTest := errors.New("test")

	t.Run("yield and finish", func(t *testing.T) {
		e := newExecutor(t, 2)
		var counter int
		co := &scripted{steps: []func() Action{
			func() Action { counter++; return Yield() },
			func() Action { counter++; return Yield() },
			func() Action { return Finish() },
		}}

		require.NoError(t, e.Spawn(context.Background(), co).Wait())
		require.Equal(t, 2, counter)
		require.Equal(t, 1, co.finalized)
		require.NoError(t, co.finalErr)
	})

	t.Run("await", func(t *testing.T) {
		e := newExecutor(t, 1)
		var result string
		co := &scripted{steps: []func() Action{
			func() Action {
				return Await(func() error {
					time.Sleep(10 * time.Millisecond)
					result = "done"
					return nil
				})
			},
			func() Action { return Finish() },
		}}

		require.NoError(t, e.Spawn(context.Background(), co).Wait())
		require.Equal(t, "done", result)
		require.Zero(t, e.Stats().Suspended)
	})

	t.Run("await failure goes to the handler", func(t *testing.T) {
		e := newExecutor(t, 1)
		co := &scripted{
			steps: []func() Action{
				func() Action { return Await(func() error { return errTest }) },
				func() Action { return Finish() },
			},
			onError: func(error) Action { return Yield() },
		}

		require.NoError(t, e.Spawn(context.Background(), co).Wait())
		require.Equal(t, []error{errTest}, co.errs)
	})

	t.Run("error returned by the handler completes the task", func(t *testing.T) {
		e := newExecutor(t, 1)
		co := &scripted{steps: []func() Action{
			func() Action { return Error(errTest) },
		}}

		require.ErrorIs(t, e.Spawn(context.Background(), co).Wait(), errTest)
		require.Len(t, co.errs, 1)
		require.Equal(t, 1, co.finalized)
		require.ErrorIs(t, co.finalErr, errTest)
	})

	t.Run("panics", func(t *testing.T) {
		e := newExecutor(t, 1)
		co := &scripted{steps: []func() Action{
			func() Action { panic(errTest) },
		}}

		require.ErrorIs(t, e.Spawn(context.Background(), co).Wait(), errTest)

		co = &scripted{steps: []func() Action{
			func() Action { panic("oops") },
		}}

		require.ErrorContains(t, e.Spawn(context.Background(), co).Wait(), "oops")
	})

	t.Run("panicking await", func(t *testing.T) {
		e := newExecutor(t, 1)
		co := &scripted{
			steps: []func() Action{
				func() Action {
					return Await(func() error { panic(errTest) })
				},
				func() Action { return Finish() },
			},
			onError: func(error) Action { return Yield() },
		}

		require.NoError(t, e.Spawn(context.Background(), co).Wait())
		require.Equal(t, []error{errTest}, co.errs)

		co = &scripted{steps: []func() Action{
			func() Action {
				return Await(func() error { panic("oops") })
			},
		}}

		require.ErrorContains(t, e.Spawn(context.Background(), co).Wait(), "oops")
		require.Zero(t, e.Stats().Suspended)
	})

	t.Run("suspend", func(t *testing.T) {
		e := newExecutor(t, 1)
		resumeCh := make(chan func(error), 1)
		co := &scripted{steps: []func() Action{
			func() Action {
				return Suspend(func(resume func(error)) {
					resumeCh <- resume
				})
			},
			func() Action { return Finish() },
		}}

		task := e.Spawn(context.Background(), co)
		resume := <-resumeCh
		require.Eventually(t, func() bool {
			return e.Stats().Suspended == 1
		}, time.Second, time.Millisecond)

		resume(nil)
		// only the first resume matters
		resume(errTest)

		require.NoError(t, task.Wait())
		require.Empty(t, co.errs)
	})

	t.Run("cancelled context", func(t *testing.T) {
		e := newExecutor(t, 1)
		ctx, cancel := context.WithCancel(context.Background())
		proceed := make(chan struct{})
		co := &scripted{steps: []func() Action{
			func() Action {
				return Await(func() error {
					<-proceed
					return nil
				})
			},
			func() Action { return Finish() },
		}}

		task := e.Spawn(ctx, co)
		cancel()
		close(proceed)

		require.ErrorIs(t, task.Wait(), context.Canceled)
		require.Equal(t, 1, co.finalized)
	})

	t.Run("cancelled while suspended", func(t *testing.T) {
		e := newExecutor(t, 1)
		ctx, cancel := context.WithCancel(context.Background())
		co := &scripted{steps: []func() Action{
			func() Action {
				// nobody is ever going to resume it
				return Suspend(func(func(error)) {})
			},
		}}

		task := e.Spawn(ctx, co)
		require.Eventually(t, func() bool {
			return e.Stats().Suspended == 1
		}, time.Second, time.Millisecond)

		cancel()

		select {
		case <-task.Done():
		case <-time.After(time.Second):
			t.Fatal("suspended coroutine wasn't cancelled")
		}

		require.ErrorIs(t, task.Err(), context.Canceled)
		require.Empty(t, co.errs)
		require.Equal(t, 1, co.finalized)
		require.Zero(t, e.Stats().Suspended)
	})

	t.Run("many coroutines on few workers", func(t *testing.T) {
		const coroutines = 200
		e := newExecutor(t, 2)
		var finished atomic.Int64
		var wg sync.WaitGroup

		for i := 0; i < coroutines; i++ {
			co := &scripted{steps: []func() Action{
				func() Action { return Await(func() error { return nil }) },
				func() Action { return Yield() },
				func() Action { finished.Add(1); return Finish() },
			}}

			wg.Add(1)
			go func() {
				defer wg.Done()
				require.NoError(t, e.Spawn(context.Background(), co).Wait())
			}()
		}

		wg.Wait()
		require.Equal(t, int64(coroutines), finished.Load())
		require.Zero(t, e.Stats().Active)
	})

	t.Run("spawn after stop", func(t *testing.T) {
		e := NewExecutor(config.Default().Async, zerolog.Nop())
		e.Stop()

		co := &scripted{}
		require.ErrorIs(t, e.Spawn(context.Background(), co).Wait(), ErrExecutorStopped)
		require.Equal(t, 1, co.finalized)
	})
}
