package evaluator

import (
	"github.com/google/uuid"
)

type PromiseState int

const (
	PromisePending PromiseState = iota
	PromiseResolved
	PromiseRejected
)

// Promise is a single-threaded future. ID exists for diagnostics and
// deterministic task bookkeeping.
type Promise struct {
	ID     string
	State  PromiseState
	Value  Object // resolved value
	Reason Object // rejection reason
}

func (p *Promise) Type() ObjectType { return PROMISE_OBJ }
func (p *Promise) Inspect() string {
	switch p.State {
	case PromiseResolved:
		return "<promise resolved: " + p.Value.Inspect() + ">"
	case PromiseRejected:
		return "<promise rejected: " + p.Reason.Inspect() + ">"
	default:
		return "<promise pending>"
	}
}

type task struct {
	promiseID string
	run       func()
}

// Scheduler is a cooperative FIFO event loop shared by both backends.
// Tasks run only when something awaits or the program drains the loop at
// exit; there is no preemption and no second goroutine, so execution
// order is deterministic. pending tracks unsettled promises by id so
// stale tasks (queued for a promise settled elsewhere) are dropped
// instead of run.
type Scheduler struct {
	queue   []task
	pending map[string]*Promise
}

func NewScheduler() *Scheduler {
	return &Scheduler{pending: make(map[string]*Promise)}
}

func (s *Scheduler) NewPromise() *Promise {
	p := &Promise{ID: uuid.NewString(), State: PromisePending}
	s.pending[p.ID] = p
	return p
}

func (s *Scheduler) Resolve(p *Promise, value Object) {
	if p.State != PromisePending {
		return
	}
	p.State = PromiseResolved
	p.Value = value
	delete(s.pending, p.ID)
}

func (s *Scheduler) Reject(p *Promise, reason Object) {
	if p.State != PromisePending {
		return
	}
	p.State = PromiseRejected
	p.Reason = reason
	delete(s.pending, p.ID)
}

// Schedule queues work that will settle the given promise.
func (s *Scheduler) Schedule(p *Promise, run func()) {
	s.queue = append(s.queue, task{promiseID: p.ID, run: run})
}

// RunNext executes one queued task. Tasks whose promise has already
// settled are dropped. Returns false when the queue is empty.
func (s *Scheduler) RunNext() bool {
	for len(s.queue) > 0 {
		t := s.queue[0]
		s.queue = s.queue[1:]
		if _, open := s.pending[t.promiseID]; !open {
			continue
		}
		t.run()
		return true
	}
	return false
}

// Drain runs tasks until the queue is empty.
func (s *Scheduler) Drain() {
	for s.RunNext() {
	}
}

// Await drives the queue until the promise settles. Awaiting a value
// that is not a promise yields the value itself. A rejected promise
// surfaces its reason as a runtime error; awaiting a promise that can
// never settle is a deadlock error.
func (s *Scheduler) Await(value Object) Object {
	p, ok := value.(*Promise)
	if !ok {
		return value
	}
	for p.State == PromisePending {
		if !s.RunNext() {
			return &Error{Message: "Await on a promise that will never settle (promise " + p.ID + ")"}
		}
	}
	if p.State == PromiseRejected {
		if err, ok := p.Reason.(*Error); ok {
			return err
		}
		return &Error{Message: p.Reason.Inspect()}
	}
	return p.Value
}

// All resolves with the results of all inputs in input order, or rejects
// with the first rejection encountered.
func (s *Scheduler) All(values []Object) Object {
	results := make([]Object, len(values))
	for i, v := range values {
		r := s.Await(v)
		if IsError(r) {
			return r
		}
		results[i] = r
	}
	return &Array{Elements: results}
}
