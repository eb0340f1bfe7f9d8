package observability

import (
	"sync"
	"testing"
	"time"
)

// TestObserver collects operations for assertions.
type TestObserver struct {
	mu         sync.Mutex
	operations []OperationContext
}

func (t *TestObserver) ObserveOperation(ctx OperationContext) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.operations = append(t.operations, ctx)
}

func (t *TestObserver) GetOperations() []OperationContext {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]OperationContext{}, t.operations...)
}

func TestMultiFansOut(t *testing.T) {
	first := &TestObserver{}
	second := &TestObserver{}

	var calls int
	fn := ObserverFunc(func(OperationContext) { calls++ })

	obs := Multi(first, nil, second, fn)
	obs.ObserveOperation(OperationContext{
		Component: "sidekiq",
		Operation: "process",
		Resource:  "default",
		Duration:  15 * time.Millisecond,
	})

	if len(first.GetOperations()) != 1 {
		t.Fatalf("expected 1 operation on first observer, got %d", len(first.GetOperations()))
	}
	if len(second.GetOperations()) != 1 {
		t.Fatalf("expected 1 operation on second observer, got %d", len(second.GetOperations()))
	}
	if calls != 1 {
		t.Fatalf("expected func observer to be called once, got %d", calls)
	}
	if got := second.GetOperations()[0].Resource; got != "default" {
		t.Errorf("expected resource 'default', got %q", got)
	}
}

func TestMultiEmptyNoPanic(t *testing.T) {
	Multi().ObserveOperation(OperationContext{Component: "sidekiq"})
	Multi(nil, nil).ObserveOperation(OperationContext{Component: "sidekiq"})
}
