package coordinator

import (
	"context"

	"github.com/cloo-solutions/semantrics/internal/domain"
)

// Outcome is the terminal state of one dispatched query.
type Outcome int

const (
	// OutcomeSkipped means the query was empty and nothing was dispatched.
	OutcomeSkipped Outcome = iota
	// OutcomeSettled means the results were published.
	OutcomeSettled
	// OutcomeSuperseded means a newer query made this response irrelevant.
	OutcomeSuperseded
	// OutcomeFailed means the provider failed while the query was still live.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeSettled:
		return "settled"
	case OutcomeSuperseded:
		return "superseded"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Result describes how a Task ended.
type Result struct {
	Outcome Outcome
	Query   string
	Seq     uint64
	Records []domain.ResultRecord
	Err     error
}

// Task is the handle returned by Search.
type Task struct {
	done   chan struct{}
	result Result
}

func newTask() *Task {
	return &Task{done: make(chan struct{})}
}

func (t *Task) finish(r Result) {
	t.result = r
	close(t.done)
}

// Done is closed once the task reaches a terminal state.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task ends or ctx is cancelled.
func (t *Task) Wait(ctx context.Context) (Result, error) {
	select {
	case <-t.done:
		return t.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}
