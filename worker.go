package forkjoin

import "sync/atomic"

// Worker is the per-thread scheduling descriptor: the THE indices and
// shadow stack of its lazy task queue, its current frame chain, and the
// local scraps the scheduling loop needs (RNG, closure cache, fiber
// cache).
type Worker struct {
	self int32
	g    *Global

	// THE protocol.  head, tail and exc index into shadowStack:
	// the owner pushes a spawn's parent at tail and pops it on leave;
	// a thief takes the frame at head; exc is raised above tail by a
	// thief to force the owner through the slow return path.
	head atomic.Int64
	tail atomic.Int64
	exc  atomic.Int64

	// shadowStack holds only frame pointers; the frames live in the
	// spawning functions themselves.  Slots are written by the owner
	// and ordered for thieves by the tail publication.
	shadowStack []*StackFrame

	// currentFrame is the youngest spawning frame the worker is
	// executing.  Owner-local.
	currentFrame *StackFrame

	// schedWake is signalled by a fiber when it hands control back to
	// the scheduling context.
	schedWake chan struct{}

	// provablyGoodSteal records whether the last child return revived
	// its parent locally.
	provablyGoodSteal bool

	randNext uint32

	closureCache *closure // free list, linked through nextReady
	closureCount int

	fiberCache []*Fiber
}

// Self returns the worker's id in [0, nworkers).
func (w *Worker) Self() int { return int(w.self) }

// excInfinity is the broadcast exception value used to stop workers at
// shutdown.
const excInfinity int64 = int64(^uint64(0) >> 1)

// resetTHE reinstalls an empty lazy task queue prior to running a
// closure.  Indices start at 1 so the slot below head stays unused, as
// a guard for the pop-side decrement.
func (w *Worker) resetTHE() {
	w.head.Store(1)
	w.tail.Store(1)
}

// rtsSrand seeds the worker's victim-selection RNG.
func (w *Worker) rtsSrand(seed uint32) { w.randNext = seed }

// rtsRand steps the worker-local linear congruential generator.
func (w *Worker) rtsRand() uint32 {
	w.randNext = w.randNext*1103515245 + 12345
	return w.randNext >> 16
}

// atTopOfStack reports whether the worker sits at the top of its lazy
// task queue with a promoted current frame, which must hold at every
// slow sync.
func (w *Worker) atTopOfStack() bool {
	return w.head.Load() == w.tail.Load() && w.currentFrame.stolen()
}

func newWorker(g *Global, self int32) *Worker {
	w := &Worker{
		self:        self,
		g:           g,
		shadowStack: make([]*StackFrame, g.opts.DeqDepth),
		schedWake:   make(chan struct{}),
	}
	w.resetTHE()
	w.exc.Store(w.head.Load())
	return w
}
