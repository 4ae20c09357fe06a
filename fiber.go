package forkjoin

import "fmt"

// A Fiber is the unit of switched execution inside a worker: a pooled
// goroutine running a trampoline loop, plus the frame a resumption
// should continue from.  A fiber is owned by at most one worker at a
// time; ownership transfers with the closure it backs.
//
// Control transfer is an explicit handoff: the scheduler sends the
// worker on the resume channel and blocks on the worker's schedWake;
// the fiber signals schedWake when it completes, aborts, or suspends.
// No lock is ever held across a switch.
type Fiber struct {
	g *Global

	// owner is the worker currently driving this fiber.  Written only
	// on the scheduler side of a handoff or at a park/resume edge,
	// where the channel transfer already orders it.
	owner *Worker

	// resumeSF is the frame whose saved context the trampoline should
	// run next.  Set by the scheduler before a switch and by the
	// set-return protocol to chain into a revived call parent.
	resumeSF *StackFrame

	resume chan *Worker
}

// fiberAbortSignal unwinds a fiber's user frames back to the
// trampoline when the computation surrenders to the runtime.
type fiberAbortSignal struct{}

// abort surrenders the current fiber to the scheduler.  Never returns.
func (f *Fiber) abort() {
	panic(fiberAbortSignal{})
}

func newFiber(g *Global) *Fiber {
	f := &Fiber{g: g, resume: make(chan *Worker)}
	g.stats.fibersCreated.Add(1)
	go f.proc()
	return f
}

// proc is the trampoline.  Each iteration runs one dispatch: the chain
// of saved contexts starting at resumeSF, extended by the set-return
// protocol as promoted call parents are revived onto this fiber.  When
// the chain ends, or the computation aborts into the runtime, control
// is handed back to the owning worker's scheduling context.
func (f *Fiber) proc() {
	for w := range f.resume {
		f.execute(w)
		ow := f.owner
		tlsClearSelf()
		ow.schedWake <- struct{}{}
	}
}

func (f *Fiber) execute(w *Worker) {
	f.owner = w
	tlsSetSelf(w, f)
	defer func() {
		switch r := recover().(type) {
		case nil:
		case fiberAbortSignal:
			// Surrendered to the runtime (stolen parent, shutdown).
		case *BugError:
			f.g.reportFatal(r)
		default:
			f.g.reportFatal(&BugError{msg: fmt.Sprintf("panic in user code: %v", r)})
		}
	}()
	for f.resumeSF != nil {
		sf := f.resumeSF
		f.resumeSF = nil
		assertf(sf.ctx.resume != nil, "resume of frame without saved context")
		sf.ctx.resume()
	}
}

// suspendToScheduler parks the calling fiber: control returns to the
// owning worker's scheduling context, and the call blocks until some
// worker (possibly a different one) resumes the fiber.  Returns the
// resuming worker.
func (f *Fiber) suspendToScheduler(w *Worker) *Worker {
	alertf(alertFiber, w.self, "(suspendToScheduler) fiber %p", f)
	tlsClearSelf()
	w.schedWake <- struct{}{}
	nw := <-f.resume
	f.owner = nw
	tlsSetSelf(nw, f)
	alertf(alertFiber, nw.self, "(suspendToScheduler) fiber %p resumed", f)
	return nw
}

// runOnFiber transfers control from the worker's scheduling context to
// fiber f, and blocks until the fiber hands control back.
func (w *Worker) runOnFiber(f *Fiber) {
	f.owner = w
	f.resume <- w
	<-w.schedWake
}

// currentFiber returns the fiber the calling goroutine executes on.
func (w *Worker) currentFiber() *Fiber {
	f := CurrentFiber()
	assertf(f != nil, "no fiber bound to this context")
	return f
}

// fiberPoolSize bounds the per-worker fiber cache; overflow goes to the
// global pool.
const fiberPoolSize = 8

// fiberAllocate takes a fiber from the worker cache, the global pool,
// or the OS (a fresh goroutine), in that order.
func (w *Worker) fiberAllocate() *Fiber {
	g := w.g
	g.stats.fibersInUse.Add(1)
	if n := len(w.fiberCache); n > 0 {
		f := w.fiberCache[n-1]
		w.fiberCache = w.fiberCache[:n-1]
		g.stats.fibersReused.Add(1)
		return f
	}
	g.fiberMu.lock(w.self)
	if n := len(g.fiberPool); n > 0 {
		f := g.fiberPool[n-1]
		g.fiberPool = g.fiberPool[:n-1]
		g.fiberMu.unlock()
		g.stats.fibersReused.Add(1)
		return f
	}
	g.fiberMu.unlock()
	return newFiber(g)
}

// fiberDeallocate returns a fiber to the pools.  The fiber must have
// handed control back to a scheduler (its goroutine is parked on its
// resume channel, or about to be).
func (w *Worker) fiberDeallocate(f *Fiber) {
	g := w.g
	g.stats.fibersInUse.Add(-1)
	g.stats.fibersFreed.Add(1)
	f.owner = nil
	f.resumeSF = nil
	if len(w.fiberCache) < fiberPoolSize {
		w.fiberCache = append(w.fiberCache, f)
		return
	}
	g.fiberMu.lock(w.self)
	g.fiberPool = append(g.fiberPool, f)
	g.fiberMu.unlock()
}

// fiberAllocateGlobal allocates a fiber from the boot thread, before
// any worker exists.
func (g *Global) fiberAllocateGlobal() *Fiber {
	g.stats.fibersInUse.Add(1)
	g.fiberMu.lock(nobody)
	if n := len(g.fiberPool); n > 0 {
		f := g.fiberPool[n-1]
		g.fiberPool = g.fiberPool[:n-1]
		g.fiberMu.unlock()
		g.stats.fibersReused.Add(1)
		return f
	}
	g.fiberMu.unlock()
	return newFiber(g)
}

// fiberDeallocateGlobal releases a fiber from the boot thread.
func (g *Global) fiberDeallocateGlobal(f *Fiber) {
	g.stats.fibersInUse.Add(-1)
	g.stats.fibersFreed.Add(1)
	f.owner = nil
	f.resumeSF = nil
	g.fiberMu.lock(nobody)
	g.fiberPool = append(g.fiberPool, f)
	g.fiberMu.unlock()
}

// drainFiberPools terminates every pooled fiber goroutine at shutdown.
func (g *Global) drainFiberPools() {
	for _, w := range g.workers {
		for _, f := range w.fiberCache {
			close(f.resume)
		}
		w.fiberCache = nil
	}
	g.fiberMu.lock(nobody)
	pool := g.fiberPool
	g.fiberPool = nil
	g.fiberMu.unlock()
	for _, f := range pool {
		close(f.resume)
	}
}
