package forkjoin

import (
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"
)

// MainFunc is the entry function of a fork-join program.  It runs under
// the runtime in hand-compiled form: it may spawn and sync, and it
// writes its exit status through res before leaving its frame.
type MainFunc func(args []string, res *int)

// Global is the process-wide runtime descriptor: workers, deques, the
// root closure, and the start/done flags.  One is created per Run; no
// lazily initialized default exists.
type Global struct {
	opts Options

	workers []*Worker
	deques  []*readyDeque

	start atomic.Bool
	done  atomic.Bool

	rootClosure *closure
	rootFrame   *StackFrame

	mainFn     MainFunc
	mainArgs   []string
	mainReturn int

	fatal atomic.Pointer[BugError]

	wg sync.WaitGroup

	// Global halves of the internal allocator and the fiber pool.
	allocMu     mutex
	closurePool *closure
	fiberMu     mutex
	fiberPool   []*Fiber

	stats statsCollector

	prevMaxStack int
}

// Runtime runs fork-join programs.  The zero value is not usable;
// construct with New.
type Runtime struct {
	opts      Options
	lastStats Stats
	mu        sync.Mutex
}

// New returns a runtime configured with opts.  Option values are
// resolved (worker count, environment overrides) at each Run.
func New(opts Options) *Runtime {
	return &Runtime{opts: opts}
}

// Run executes main under the runtime and returns its exit status.  A
// fatal internal error aborts the computation and is returned with
// status 1.
func (r *Runtime) Run(main MainFunc, args []string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, err := newGlobal(r.opts)
	if err != nil {
		return 1, err
	}
	g.mainFn = main
	g.mainArgs = args

	g.bootWorkers()
	g.releaseStart()
	g.wg.Wait()
	g.cleanup()

	r.lastStats = g.stats.snapshot()
	if bug := g.fatal.Load(); bug != nil {
		return 1, bug
	}
	return g.mainReturn, nil
}

// Stats returns the scheduler counters of the most recent Run.
func (r *Runtime) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastStats
}

// newGlobal validates and resolves the options and builds the worker,
// deque and thread arrays.
func newGlobal(opts Options) (*Global, error) {
	alertSetup()
	resolved, err := opts.resolve()
	if err != nil {
		return nil, err
	}

	g := &Global{opts: resolved}
	g.allocMu.owner = nobody
	g.fiberMu.owner = nobody

	n := g.opts.NProc
	alertf(alertBoot, nobody, "(newGlobal) booting with %d workers", n)

	g.workers = make([]*Worker, n)
	g.deques = make([]*readyDeque, n)
	for i := 0; i < n; i++ {
		g.deques[i] = &readyDeque{}
		g.deques[i].mu.owner = nobody
		g.workers[i] = newWorker(g, int32(i))
	}

	// The per-fiber stack bound applies to every fiber goroutine.
	g.prevMaxStack = debug.SetMaxStack(g.opts.StackSize)

	g.rootClosure = g.createRootClosure()
	return g, nil
}

// bootWorkers binds each worker to an OS thread and parks it on the
// start flag.
func (g *Global) bootWorkers() {
	for _, w := range g.workers {
		g.wg.Add(1)
		go g.workerThread(w)
	}
}

func (g *Global) workerThread(w *Worker) {
	defer g.wg.Done()
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	tlsSetSelf(w, nil)
	defer tlsClearSelf()

	defer func() {
		if r := recover(); r != nil {
			if bug, ok := r.(*BugError); ok {
				g.reportFatal(bug)
				return
			}
			panic(r)
		}
	}()

	alertf(alertBoot, w.self, "(workerThread) waiting for start")
	for !g.start.Load() {
		time.Sleep(time.Microsecond)
	}

	if w.self == 0 {
		w.schedulerLoop(g.rootClosure)
	} else {
		w.schedulerLoop(nil)
	}
	alertf(alertBoot, w.self, "(workerThread) exiting")
}

// releaseStart publishes the root closure and opens the start barrier.
func (g *Global) releaseStart() {
	alertf(alertBoot, nobody, "(releaseStart) root closure %p", g.rootClosure)
	// The atomic store orders the root closure publication before any
	// worker observes start.
	g.start.Store(true)
}

// createRootClosure synthesizes the closure for the program entry.  Its
// frame is runtime-made: marked promoted and detached up front, carrying
// the root procedure as its saved context, so the first dispatch on
// worker 0 and any later steal of the root continuation go through the
// ordinary paths.
func (g *Global) createRootClosure() *closure {
	t := g.closureCreateGlobal()
	t.status = closureReady

	sf := &StackFrame{}
	sf.flags.Store(frameVersion | frameStolen | frameDetached)
	sf.ctx.resume = func() { g.rootProc() }
	sf.worker.Store(nil)

	f := g.fiberAllocateGlobal()
	f.resumeSF = sf

	t.frame = sf
	t.fiber = f
	g.rootFrame = sf

	alertf(alertBoot, nobody, "(createRootClosure) root closure %p fiber %p", t, f)
	return t
}

// rootProc is the body of the root closure: spawn the user main, sync,
// record the result, and signal completion.
func (g *Global) rootProc() {
	w := CurrentWorker()
	sf := w.currentFrame
	assertf(sf == g.rootFrame, "root procedure on foreign frame")
	alertf(alertBoot, w.self, "(rootProc) invoking user main")

	var res int
	cont := func() {
		if sf.Unsynced() {
			Sync(sf)
		}
		cw := CurrentWorker()
		alertf(alertBoot, cw.self, "(rootProc) user main returned %d", res)
		g.mainReturn = res
		// The result store is ordered before the done publication.
		g.done.Store(true)
		g.signalImmediateExceptionToAll()
	}
	SaveContext(sf, cont)
	g.spawnMain(&res)
	cont()
}

// spawnMain is the spawn helper for the user main function.
func (g *Global) spawnMain(res *int) {
	var sf StackFrame
	EnterFrameFast(&sf)
	SaveContext(&sf, func() {
		PopFrame(&sf)
		LeaveFrame(&sf)
	})
	Detach(&sf)
	g.mainFn(g.mainArgs, res)
	PopFrame(&sf)
	LeaveFrame(&sf)
}

// reportFatal records the first fatal error and forces shutdown.
func (g *Global) reportFatal(bug *BugError) {
	if g.fatal.CompareAndSwap(nil, bug) {
		alertEvlog.Error().Err(bug).Msg("fatal runtime error; shutting down")
	}
	g.done.Store(true)
}

// cleanup releases the root closure and every pooled fiber.  On a clean
// shutdown the fiber in-use counter returns to zero here.
func (g *Global) cleanup() {
	if g.fatal.Load() == nil {
		if g.rootClosure.fiber != nil {
			g.fiberDeallocateGlobal(g.rootClosure.fiber)
			g.rootClosure.fiber = nil
		}
		g.closureDestroyGlobal(g.rootClosure)
		if n := g.stats.fibersInUse.Load(); n != 0 {
			g.reportFatal(&BugError{msg: fmt.Sprintf("fiber leak at shutdown: %d in use", n)})
		}
	}
	g.drainFiberPools()
	debug.SetMaxStack(g.prevMaxStack)
	alertf(alertBoot, nobody, "(cleanup) all workers joined")
}
