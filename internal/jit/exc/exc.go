// Package exc holds the process-wide fault handler registry. OS-level fault
// delivery is per-process, so there is exactly one registry: each code cache
// registers a callback at creation and removes it at destruction, and an
// incoming fault is offered to every callback in registration order until
// one accepts it.
package exc

import (
	"sync"

	"github.com/tinyrange/sh4jit/internal/jit"
)

// Handler inspects a fault and returns true if it consumed it.
type Handler func(f *jit.Fault) bool

// Handle identifies a registered handler. Handles stay valid when other
// handlers are removed.
type Handle int

type entry struct {
	handle Handle
	cb     Handler
}

var (
	mu       sync.Mutex
	next     Handle
	handlers []entry
)

// Register adds cb to the end of the dispatch order.
func Register(cb Handler) Handle {
	mu.Lock()
	defer mu.Unlock()

	next++
	handlers = append(handlers, entry{handle: next, cb: cb})
	return next
}

// Remove drops a previously registered handler. Removing an unknown handle
// is a no-op.
func Remove(h Handle) {
	mu.Lock()
	defer mu.Unlock()

	for i, e := range handlers {
		if e.handle == h {
			handlers = append(handlers[:i], handlers[i+1:]...)
			return
		}
	}
}

// Dispatch offers the fault to each handler in registration order. The
// first handler to accept wins; false means the fault is unhandled and the
// caller should treat it as fatal.
func Dispatch(f *jit.Fault) bool {
	mu.Lock()
	cbs := make([]Handler, len(handlers))
	for i, e := range handlers {
		cbs[i] = e.cb
	}
	mu.Unlock()

	for _, cb := range cbs {
		if cb(f) {
			return true
		}
	}
	return false
}
