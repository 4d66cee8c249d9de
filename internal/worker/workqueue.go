package worker

import (
	"context"
	"sync"
	"sync/atomic"
)

type workQueue[Task any] struct {
	slots chan struct{}
	wg    sync.WaitGroup

	active atomic.Int64

	// onActive is called with the number of running tasks whenever it changes
	onActive func(active int64)
}

func newWorkQueue[Task any](maxParallelTasks int, onActive func(active int64)) *workQueue[Task] {
	var slots chan struct{}
	if maxParallelTasks > 0 {
		slots = make(chan struct{}, maxParallelTasks)
	}

	if onActive == nil {
		onActive = func(int64) {}
	}

	return &workQueue[Task]{
		slots:    slots,
		onActive: onActive,
	}
}

func (w *workQueue[Task]) reserve(ctx context.Context) error {
	if w.slots == nil {
		return nil // No limit on parallel tasks, no reservation needed
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case w.slots <- struct{}{}:
		return nil
	}
}

func (w *workQueue[Task]) release() {
	if w.slots == nil {
		return
	}

	<-w.slots
}

// dispatch runs handle on its own goroutine and releases the slot reserved for the task once it
// returns.
func (w *workQueue[Task]) dispatch(ctx context.Context, task *Task, handle func(context.Context, *Task)) {
	w.wg.Add(1)
	w.onActive(w.active.Add(1))

	go func() {
		defer w.wg.Done()
		defer w.release()
		defer func() {
			w.onActive(w.active.Add(-1))
		}()

		handle(ctx, task)
	}()
}

// wait blocks until all dispatched tasks have returned.
func (w *workQueue[Task]) wait() {
	w.wg.Wait()
}
