package exc

import (
	"testing"

	"github.com/tinyrange/sh4jit/internal/jit"
)

func TestDispatchOrder(t *testing.T) {
	var order []string

	h1 := Register(func(f *jit.Fault) bool {
		order = append(order, "first")
		return false
	})
	defer Remove(h1)
	h2 := Register(func(f *jit.Fault) bool {
		order = append(order, "second")
		return true
	})
	defer Remove(h2)
	h3 := Register(func(f *jit.Fault) bool {
		order = append(order, "third")
		return true
	})
	defer Remove(h3)

	if !Dispatch(&jit.Fault{}) {
		t.Fatal("fault not handled")
	}

	// The first handler to accept consumes the fault; the third never runs.
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("handlers ran as %v", order)
	}
}

func TestDispatchUnhandled(t *testing.T) {
	h := Register(func(f *jit.Fault) bool { return false })
	defer Remove(h)

	if Dispatch(&jit.Fault{}) {
		t.Fatal("declined fault reported as handled")
	}
}

func TestRemoveKeepsOtherHandles(t *testing.T) {
	hits := 0

	h1 := Register(func(f *jit.Fault) bool { return false })
	h2 := Register(func(f *jit.Fault) bool {
		hits++
		return true
	})
	defer Remove(h2)

	Remove(h1)
	Remove(h1) // removing twice is a no-op

	if !Dispatch(&jit.Fault{}) || hits != 1 {
		t.Fatalf("surviving handler not reached (hits=%d)", hits)
	}
}
