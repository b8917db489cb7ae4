package async

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/indigo-web/exchange/config"
	"github.com/puzpuzpuz/xsync/v3"
	"github.com/rs/zerolog"
)

var ErrExecutorStopped = errors.New("executor is stopped")

type kind uint8

const (
	kindYield kind = iota
	kindAwait
	kindSuspend
	kindFinish
	kindError
)

// Action is returned by every step of a coroutine and tells the executor what to do next.
type Action struct {
	kind     kind
	op       func() error
	register func(resume func(err error))
	err      error
}

// Yield continues with the next step as soon as possible.
func Yield() Action {
	return Action{kind: kindYield}
}

// Await runs the blocking operation outside the workers. The coroutine is resumed when
// it returns: with the next step on success, or with HandleError otherwise.
func Await(op func() error) Action {
	return Action{kind: kindAwait, op: op}
}

// Suspend parks the coroutine until the resume callback is called. Only the first call of
// resume has an effect.
func Suspend(register func(resume func(err error))) Action {
	return Action{kind: kindSuspend, register: register}
}

// Finish completes the coroutine successfully.
func Finish() Action {
	return Action{kind: kindFinish}
}

// Error passes the error to the coroutine's HandleError. Being returned from HandleError
// itself, completes the coroutine with the error.
func Error(err error) Action {
	return Action{kind: kindError, err: err}
}

// Coroutine is a resumable state machine. A single coroutine is never stepped concurrently,
// so it needs no synchronization of its own.
type Coroutine interface {
	Act() Action
	HandleError(err error) Action
}

// Finalizer is optionally implemented by coroutines, which must release resources. It's
// called exactly once, after the coroutine completed for whatever reason.
type Finalizer interface {
	Finalize(err error)
}

// Task is a handle of a spawned coroutine.
type Task struct {
	ctx       context.Context
	co        Coroutine
	resumeErr error
	err       error
	done      chan struct{}
}

// Done is closed when the coroutine is completed.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the error the coroutine completed with. Valid only after Done is closed.
func (t *Task) Err() error {
	return t.err
}

// Wait blocks until the coroutine is completed.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Executor drives coroutines using a fixed number of worker goroutines. Blocking operations
// requested via Await are run on their own goroutines, so workers are never blocked on I/O.
type Executor struct {
	log       zerolog.Logger
	queue     chan *Task
	workers   sync.WaitGroup
	tasks     sync.WaitGroup
	mu        sync.Mutex
	stopped   bool
	active    *xsync.Counter
	suspended *xsync.Counter
	stepping  atomic.Int64
}

func NewExecutor(cfg config.Async, logger zerolog.Logger) *Executor {
	e := &Executor{
		log:       logger,
		queue:     make(chan *Task, max(cfg.QueueSize, 1)),
		active:    xsync.NewCounter(),
		suspended: xsync.NewCounter(),
	}

	workers := max(cfg.Workers, 1)
	e.workers.Add(workers)
	for i := 0; i < workers; i++ {
		go e.worker()
	}

	return e
}

// Spawn schedules the coroutine. Cancelling the context completes the coroutine with the
// context's error before its next step, even if it's suspended at the moment.
func (e *Executor) Spawn(ctx context.Context, co Coroutine) *Task {
	task := &Task{
		ctx:  ctx,
		co:   co,
		done: make(chan struct{}),
	}

	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		e.complete(task, ErrExecutorStopped)
		return task
	}

	e.tasks.Add(1)
	e.active.Inc()
	e.mu.Unlock()

	e.schedule(task)

	return task
}

// Stop waits until all the spawned coroutines are completed and stops the workers. Spawning
// after Stop completes coroutines immediately with ErrExecutorStopped.
func (e *Executor) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}

	e.stopped = true
	e.mu.Unlock()

	e.tasks.Wait()
	close(e.queue)
	e.workers.Wait()
}

// Stats represents a snapshot of the executor's load.
type Stats struct {
	// Active is the number of spawned, but not yet completed coroutines.
	Active int64
	// Suspended is the number of coroutines awaiting an operation or a resume.
	Suspended int64
	// Stepping is the number of coroutines being currently executed by workers.
	Stepping int64
}

func (e *Executor) Stats() Stats {
	return Stats{
		Active:    e.active.Value(),
		Suspended: e.suspended.Value(),
		Stepping:  e.stepping.Load(),
	}
}

func (e *Executor) schedule(task *Task) {
	select {
	case e.queue <- task:
	default:
		// the queue is full. Blocking here might deadlock, when all the workers are
		// trying to schedule at the same time
		go func() {
			e.queue <- task
		}()
	}
}

func (e *Executor) worker() {
	defer e.workers.Done()

	for task := range e.queue {
		e.stepping.Add(1)
		e.run(task)
		e.stepping.Add(-1)
	}
}

// run steps the coroutine until it either completes or gets suspended.
func (e *Executor) run(task *Task) {
	var (
		action      Action
		fromHandler bool
	)

	if err := task.ctx.Err(); err != nil {
		e.finish(task, err)
		return
	}

	if err := task.resumeErr; err != nil {
		task.resumeErr = nil
		action, fromHandler = e.handle(task, err), true
	} else {
		action = Yield()
	}

	for {
		switch action.kind {
		case kindYield:
			if err := task.ctx.Err(); err != nil {
				e.finish(task, err)
				return
			}

			action, fromHandler = e.step(task), false
		case kindAwait:
			op := action.op
			e.suspend(task, func(resume func(error)) {
				go func() {
					defer func() {
						if r := recover(); r != nil {
							resume(asError(r))
						}
					}()

					resume(op())
				}()
			})
			return
		case kindSuspend:
			e.suspend(task, action.register)
			return
		case kindFinish:
			e.finish(task, nil)
			return
		case kindError:
			if fromHandler {
				e.finish(task, action.err)
				return
			}

			action, fromHandler = e.handle(task, action.err), true
		}
	}
}

func (e *Executor) step(task *Task) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			action = Error(asError(r))
		}
	}()

	return task.co.Act()
}

func (e *Executor) handle(task *Task, err error) (action Action) {
	defer func() {
		if r := recover(); r != nil {
			action = Error(asError(r))
		}
	}()

	return task.co.HandleError(err)
}

// suspend parks the task until either the operation resumes it or the task's context is
// done, whichever happens first.
func (e *Executor) suspend(task *Task, register func(resume func(error))) {
	e.suspended.Inc()

	var (
		resumed    atomic.Bool
		mu         sync.Mutex
		stopCancel func() bool
	)

	resume := func(err error) {
		if !resumed.CompareAndSwap(false, true) {
			return
		}

		mu.Lock()
		stop := stopCancel
		mu.Unlock()
		if stop != nil {
			stop()
		}

		e.suspended.Dec()
		task.resumeErr = err
		e.schedule(task)
	}

	mu.Lock()
	stopCancel = context.AfterFunc(task.ctx, func() {
		resume(task.ctx.Err())
	})
	mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			resume(asError(r))
		}
	}()

	register(resume)
}

func (e *Executor) finish(task *Task, err error) {
	e.complete(task, err)
	e.active.Dec()
	e.tasks.Done()
}

func (e *Executor) complete(task *Task, err error) {
	task.err = err

	if finalizer, ok := task.co.(Finalizer); ok {
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.log.Error().Interface("panic", r).Msg("coroutine finalizer panicked")
				}
			}()

			finalizer.Finalize(err)
		}()
	}

	close(task.done)
}

func asError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}

	return fmt.Errorf("panic: %v", r)
}
