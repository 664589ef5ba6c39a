package shutdown

import (
	"context"
	"errors"
	"testing"
)

func TestRegistry_RunsInPriorityOrder(t *testing.T) {
	registry := NewRegistry()

	var order []string
	appendName := func(name string) func(context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}

	registry.Register("database", 30, appendName("database"))
	registry.Register("logger", 5, appendName("logger"))
	registry.Register("server", 10, appendName("server"))

	if errs := registry.Shutdown(context.Background()); len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}

	want := []string{"logger", "server", "database"}
	if len(order) != len(want) {
		t.Fatalf("ran %d handlers, want %d", len(order), len(want))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
	}
}

func TestRegistry_ContinuesPastFailures(t *testing.T) {
	registry := NewRegistry()

	boom := errors.New("close failed")
	ran := false
	registry.Register("broken", 10, func(ctx context.Context) error { return boom })
	registry.Register("working", 20, func(ctx context.Context) error {
		ran = true
		return nil
	})

	errs := registry.Shutdown(context.Background())
	if len(errs) != 1 {
		t.Fatalf("got %d errors, want 1", len(errs))
	}
	if !errors.Is(errs[0], boom) {
		t.Errorf("error = %v, want wrapped %v", errs[0], boom)
	}
	if !ran {
		t.Error("later handler did not run after a failure")
	}
}

func TestRegistry_ShutdownIsIdempotent(t *testing.T) {
	registry := NewRegistry()

	runs := 0
	registry.Register("once", 10, func(ctx context.Context) error {
		runs++
		return nil
	})

	registry.Shutdown(context.Background())
	registry.Shutdown(context.Background())

	if runs != 1 {
		t.Errorf("handler ran %d times, want 1", runs)
	}

	// Registration after shutdown is a no-op.
	registry.Register("late", 10, func(ctx context.Context) error { return nil })
	if registry.Len() != 1 {
		t.Errorf("len = %d, want 1", registry.Len())
	}
}
