package forkjoin

import (
	"sync"

	"github.com/petermattis/goid"
)

// The "current worker" and "current fiber" accessors.  They cannot be
// keyed by OS thread: user code runs on fiber goroutines, which the Go
// scheduler moves between threads.  Bindings are therefore keyed by
// goroutine id and maintained at the only places execution migrates,
// fiber switches and park/resume edges, where the handoff channel
// already serializes the two sides.

type tlsBinding struct {
	w *Worker
	f *Fiber
}

var tlsBindings sync.Map // goroutine id -> tlsBinding

// tlsSetSelf binds the calling goroutine to worker w and fiber f
// (f may be nil for a scheduling context).
func tlsSetSelf(w *Worker, f *Fiber) {
	tlsBindings.Store(goid.Get(), tlsBinding{w: w, f: f})
}

// tlsClearSelf removes the calling goroutine's binding.
func tlsClearSelf() {
	tlsBindings.Delete(goid.Get())
}

// CurrentWorker resolves the worker owning the calling goroutine.  It
// is valid inside user code running under the runtime and inside the
// scheduler; anywhere else it is a contract violation.
func CurrentWorker() *Worker {
	v, ok := tlsBindings.Load(goid.Get())
	if !ok {
		bugf("CurrentWorker called outside the runtime")
	}
	return v.(tlsBinding).w
}

// CurrentFiber resolves the fiber the calling goroutine executes on,
// or nil on a scheduling context.
func CurrentFiber() *Fiber {
	v, ok := tlsBindings.Load(goid.Get())
	if !ok {
		bugf("CurrentFiber called outside the runtime")
	}
	return v.(tlsBinding).f
}
