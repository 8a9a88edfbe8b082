package evaluator

import (
	"strings"
	"testing"
)

func TestSettledPromiseDropsQueuedTask(t *testing.T) {
	s := NewScheduler()
	p := s.NewPromise()
	ran := false
	s.Schedule(p, func() { ran = true })
	s.Resolve(p, NULL)
	s.Drain()
	if ran {
		t.Error("task for a settled promise must be dropped")
	}
}

func TestDrainRunsRemainingTasks(t *testing.T) {
	s := NewScheduler()
	order := []int{}
	first := s.NewPromise()
	second := s.NewPromise()
	s.Schedule(first, func() {
		order = append(order, 1)
		s.Resolve(first, NULL)
	})
	s.Schedule(second, func() {
		order = append(order, 2)
		s.Resolve(second, NULL)
	})
	s.Drain()
	if len(order) != 2 || order[0] != 1 || order[1] != 2 {
		t.Errorf("order = %v", order)
	}
}

func TestAwaitDeadlockNamesPromise(t *testing.T) {
	s := NewScheduler()
	p := s.NewPromise()
	result := s.Await(p)
	err, ok := result.(*Error)
	if !ok {
		t.Fatalf("expected error, got %T", result)
	}
	if !strings.Contains(err.Message, "never settle") || !strings.Contains(err.Message, p.ID) {
		t.Errorf("error = %q", err.Message)
	}
}
