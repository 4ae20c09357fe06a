package forkjoin

// The per-worker scheduling loop: run local work from the deque bottom,
// otherwise steal from a random victim, and dispatch whatever comes
// back until the computation is done.

// setupForExecution installs t as the worker's running closure: the
// worker takes over the frame, the lazy task queue resets to empty, and
// the exception pointer rearms.  Caller holds t's lock.
func (w *Worker) setupForExecution(t *closure) {
	t.assertOwnership(w.self)
	alertf(alertSched, w.self, "(setupForExecution) closure %p", t)

	assertf(t.frame != nil, "execution of closure without frame")
	t.frame.worker.Store(w)
	t.status = closureRunning
	t.resumedBy = w.self

	w.resetTHE()
	w.currentFrame = t.frame
	w.resetExceptionPointer(t)
}

// doWhatItSays dispatches one closure.  A READY closure is installed
// and run on its fiber; control comes back when the fiber completes,
// aborts, or suspends.  A RETURNING closure goes through the return
// protocol, which may hand back a provably-good-stolen parent as the
// next thing to run.
func (w *Worker) doWhatItSays(t *closure) *closure {
	alertf(alertSched, w.self, "(doWhatItSays) closure %p", t)

	var res *closure
	t.lock(w.self)

	switch t.status {
	case closureReady:
		w.setupForExecution(t)
		f := t.fiber
		assertf(f != nil, "ready closure without fiber")
		t.unlock(w.self)

		// The closure must be unlocked before the deque locks.
		w.dequeLockSelf()
		w.dequeAddBottom(w.self, t)
		w.dequeUnlockSelf()

		alertf(alertSched, w.self, "(doWhatItSays) jumping into user code")
		w.runOnFiber(f)
		alertf(alertSched, w.self, "(doWhatItSays) back from user code")

	case closureReturning:
		// The return protocol assumes t is unlocked and everybody
		// respects that it is returning.
		t.unlock(w.self)
		res = w.returnValue(t)

	default:
		bugf("closure with status %v in scheduling loop", t.status)
	}
	return res
}

// schedulerLoop is the body of one worker.  t is the first closure to
// run (the root closure on worker 0), or nil.
func (w *Worker) schedulerLoop(t *closure) {
	g := w.g
	assertf(w == CurrentWorker(), "scheduler on foreign worker")

	w.rtsSrand(uint32(w.self) * 162347)
	nworkers := uint32(len(g.workers))

	for !g.done.Load() {
		if t == nil {
			// Local work first.
			w.dequeLockSelf()
			t = w.dequeXtractBottom(w.self)
			w.dequeUnlockSelf()
		}

		// Steal loop: no backoff, every failure is silent.
		for t == nil && !g.done.Load() {
			victim := int32(w.rtsRand() % nworkers)
			if victim != w.self {
				t = w.stealFrom(victim)
			}
		}

		if !g.done.Load() {
			// A provably-good steal hands back the next closure.
			t = w.doWhatItSays(t)
		}
	}
}
