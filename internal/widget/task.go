package widget

import (
	"context"
	"sync"
)

// Task is the handle of one in-flight send. Cancel aborts the polling loop; a cancelled
// task never writes into the conversation.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
	err    error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{cancel: cancel, done: make(chan struct{})}
}

func (t *Task) Cancel() {
	t.cancel()
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err is the send result; only meaningful after Done is closed.
func (t *Task) Err() error {
	select {
	case <-t.done:
		return t.err
	default:
		return nil
	}
}

// Wait blocks until the task finishes or ctx ends.
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *Task) running() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

func (t *Task) finish(err error) {
	t.once.Do(func() {
		t.err = err
		t.cancel()
		close(t.done)
	})
}
