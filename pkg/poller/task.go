package poller

import (
	"context"
	"sync"
)

// State 轮询状态.
type State int

const (
	StatePending          State = iota // 仍在轮询
	StateDone                          // 已完成，onComplete 已调用
	StateError                         // 服务端报告失败
	StateTransportFailure              // 请求失败或响应不合法
	StateCancelled                     // 被取消
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDone:
		return "done"
	case StateError:
		return "error"
	case StateTransportFailure:
		return "transport_failure"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Task 一次轮询的句柄.
type Task struct {
	cancel context.CancelFunc
	done   chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

func newTask(cancel context.CancelFunc) *Task {
	return &Task{cancel: cancel, done: make(chan struct{})}
}

func (t *Task) finish(state State, err error) {
	t.mu.Lock()
	t.state, t.err = state, err
	t.mu.Unlock()

	close(t.done)
}

// Cancel 停止轮询并释放等待中的计时器.
func (t *Task) Cancel() { t.cancel() }

// Done 轮询结束时关闭.
func (t *Task) Done() <-chan struct{} { return t.done }

// State 当前状态.
func (t *Task) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Err 结束原因，完成时为 nil.
func (t *Task) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}

// Wait 等待结束并返回 Err.
func (t *Task) Wait() error {
	<-t.done
	return t.Err()
}
