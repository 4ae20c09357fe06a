package forkjoin

// Sync waits for every child spawned by sf's function since the
// previous sync.  The fast path, taken when the frame was never
// promoted, costs
// one flag load: all children ran inline and are complete.  On the slow
// path the closure either has no outstanding children, in which case
// execution continues inline, or it suspends: the fiber parks, the
// worker returns to its scheduling loop, and the call completes when a
// provably-good steal revives the closure, possibly on another worker.
func Sync(sf *StackFrame) {
	if !sf.Unsynced() {
		return
	}

	w := CurrentWorker()
	alertf(alertSync, w.self, "(Sync) syncing frame %p", sf)

	assertf(sf.flags.Load()&frameVersion != 0, "sync on uninitialized frame")
	assertf(sf == w.currentFrame, "sync on non-current frame")
	assertf(sf.worker.Load() == w, "sync on foreign worker")

	if w.slowSync(sf) {
		alertf(alertSync, w.self, "(Sync) synced frame %p", sf)
		return
	}

	// Outstanding children: surrender to the scheduler and park until
	// the last child's return revives this closure.
	alertf(alertSync, w.self, "(Sync) suspending frame %p", sf)
	f := w.currentFiber()
	nw := f.suspendToScheduler(w)
	assertf(sf.worker.Load() == nw, "resumed frame on wrong worker")
	alertf(alertSync, nw.self, "(Sync) frame %p resumed after suspension", sf)
}

// slowSync runs the slow sync protocol on the worker's bottom closure.
// Returns true when the sync is complete and execution may continue
// inline.
func (w *Worker) slowSync(sf *StackFrame) bool {
	w.dequeLockSelf()
	t := w.dequePeekBottom(w.self)
	assertf(t != nil, "sync with empty deque")
	t.lock(w.self)

	assertf(w.atTopOfStack(), "sync below the top of the lazy task queue")
	assertf(t.status == closureRunning, "sync on %v closure", t.status)
	assertf(t.frame == sf, "sync frame does not match bottom closure")
	assertf(sf.stolen(), "slow sync on unpromoted frame")
	assertf(!t.hasCallee, "sync with outstanding called child")

	ready := true
	if t.hasChildren() {
		w.closureSuspendSelf(t)
		ready = false
	} else {
		w.setupForSync(t)
	}

	t.unlock(w.self)
	w.dequeUnlockSelf()
	return ready
}

// setupForSync completes a sync that found no outstanding children.
// Caller holds the closure lock and the self deque lock.
func (w *Worker) setupForSync(t *closure) {
	t.frame.setSynced()
	w.resetExceptionPointer(t)
}
