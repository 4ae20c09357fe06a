package forkjoin

// incrementExceptionPointer raises the victim's exception index, the
// thief half of the Dekker handshake.  Caller holds the victim's deque
// lock and the closure lock.
func (w *Worker) incrementExceptionPointer(victim *Worker, cl *closure) {
	cl.assertOwnership(w.self)
	assertf(cl.status == closureRunning, "exception raise on %v closure", cl.status)

	if victim.exc.Load() != excInfinity {
		// The atomic increment is globally ordered before the head and
		// tail re-reads that decide the handshake.
		victim.exc.Add(1)
	}
}

// decrementExceptionPointer retracts a raised exception after a lost
// handshake.
func (w *Worker) decrementExceptionPointer(victim *Worker, cl *closure) {
	cl.assertOwnership(w.self)
	assertf(cl.status == closureRunning, "exception retract on %v closure", cl.status)

	if victim.exc.Load() != excInfinity {
		victim.exc.Add(-1)
	}
}

// resetExceptionPointer restores exc to head once the worker has taken
// over closure cl.  Caller holds cl's lock.
func (w *Worker) resetExceptionPointer(cl *closure) {
	cl.assertOwnership(w.self)
	// The closure's frame is ours, unowned (an adopted helper frame or
	// the not-yet-started root), or not bound at all.
	fw := (*Worker)(nil)
	if cl.frame != nil {
		fw = cl.frame.worker.Load()
	}
	assertf(cl.frame == nil || fw == w || fw == nil,
		"exception reset for foreign closure")
	w.exc.Store(w.head.Load())
}

// signalImmediateExceptionToAll broadcasts the infinite exception to
// every worker, forcing any worker still inside user code through the
// slow leave path during shutdown.
func (g *Global) signalImmediateExceptionToAll() {
	for _, w := range g.workers {
		w.exc.Store(excInfinity)
	}
}

// exceptionHandler is the victim's slow leave path, entered after the
// tail decrement observed exc > tail.  If the last exposed parent was
// stolen, the bottom closure (the promoted child the worker has just
// finished) turns RETURNING and the fiber surrenders to the scheduler;
// this call then does not return.  A retracted exception falls through
// and the caller resumes the fast path.
func (w *Worker) exceptionHandler() {
	alertf(alertExcept, w.self, "(exceptionHandler) tail=%d exc=%d", w.tail.Load(), w.exc.Load())

	if w.exc.Load() == excInfinity {
		// Shutdown broadcast: abandon user code entirely.
		assertf(w.g.done.Load(), "infinite exception without shutdown")
		w.currentFiber().abort()
	}

	w.dequeLockSelf()
	t := w.dequePeekBottom(w.self)
	assertf(t != nil, "exception with empty deque")
	t.lock(w.self)

	if w.exc.Load() > w.tail.Load() {
		// The parent of the frame being left was stolen; t is the
		// closure promoted for this spawned child.
		w.resetExceptionPointer(t)
		assertf(t.status == closureRunning, "stolen child closure is %v", t.status)
		assertf(t.fiber == w.currentFiber(), "child closure fiber mismatch")
		// The child's frame is unset unless a later stacklet steal
		// adopted the oldest detached helper frame into it.
		assertf(t.frame == nil || t.frame.detached(),
			"spawned child closure carries a non-detached frame")
		t.status = closureReturning

		t.unlock(w.self)
		w.dequeUnlockSelf()

		w.g.stats.exceptions.Add(1)
		alertf(alertExcept, w.self, "(exceptionHandler) surrendering to scheduler")
		w.currentFiber().abort()
	}

	// The thief lost the handshake and retracted; nothing was stolen.
	t.unlock(w.self)
	w.dequeUnlockSelf()
}
