package forkjoin

// Return protocols: the set-return path for promoted called children
// and the closure-return path for spawned children.

// setupCallParentResumption performs the unconditional steal-back of a
// call parent closure: the callee has finished, so the parent resumes
// on this worker.  Caller holds the self deque lock and t's lock.
func (w *Worker) setupCallParentResumption(t *closure) {
	w.g.deques[w.self].assertOwnership(w.self)
	t.assertOwnership(w.self)

	assertf(t.frame != nil, "call parent resumption without frame")
	assertf(t.frame.stolen(), "call parent frame not promoted")
	assertf(t.frame.worker.Load() == nil, "call parent frame still owned")
	assertf(t.status == closureSuspended, "call parent resumption of %v closure", t.status)
	assertf(w.head.Load() == w.tail.Load(), "call parent resumption below queue top")

	t.status = closureRunning
	t.resumedBy = w.self
	t.frame.worker.Store(w)
	t.frame.clearFlag(frameSuspended)

	w.currentFrame = t.frame
	w.resetExceptionPointer(t)
}

// setReturn runs when a promoted called (not spawned) frame returns:
// the child closure passes its fiber up, dies, and the call parent
// comes back RUNNING at the bottom of this worker's deque, with its
// saved context chained onto the current fiber.  The root closure has
// no call parent and simply stays put.
func (w *Worker) setReturn() {
	alertf(alertReturn, w.self, "(setReturn)")

	w.dequeLockSelf()
	t := w.dequePeekBottom(w.self)
	assertf(t != nil, "set-return with empty deque")
	t.lock(w.self)

	assertf(t.status == closureRunning, "set-return on %v closure", t.status)
	assertf(!t.hasChildren(), "set-return with outstanding children")

	if t.callParent == nil {
		assertf(t == w.g.rootClosure, "parentless closure is not the root")
		t.unlock(w.self)
		w.dequeUnlockSelf()
		return
	}

	assertf(t.spawnParent == nil, "called child has spawn parent")
	assertf(!t.frame.detached(), "called child is detached")

	callParent := t.callParent
	t1 := w.dequeXtractBottom(w.self)
	assertf(t == t1, "returning closure was not at deque bottom")
	assertf(t.frame.stolen(), "returning called child not promoted")

	t.frame = nil
	fiber := t.fiber
	t.fiber = nil
	t.callParent = nil
	t.unlock(w.self)

	callParent.lock(w.self)
	// The child's fiber carries the parent's continuation from here.
	callParent.fiber = fiber
	callParent.removeCallee()
	w.setupCallParentResumption(callParent)
	resumeSF := callParent.frame
	callParent.unlock(w.self)

	w.closureDestroy(t)
	w.dequeAddBottom(w.self, callParent)
	w.dequeUnlockSelf()

	// Chain the parent's saved context onto this fiber; the trampoline
	// picks it up when the child's continuation unwinds.
	f := w.currentFiber()
	assertf(f == fiber, "set-return off the child's fiber")
	f.resumeSF = resumeSF

	w.g.stats.setReturns.Add(1)
}

// closureReturn runs the return protocol of a spawned child: unlink it
// from the sibling list, destroy it, decrement the parent's join
// counter, and hand back the parent if this was a provably-good steal.
// The child must be locked by nobody and sit in no deque.
func (w *Worker) closureReturn(child *closure) *closure {
	assertf(child != nil, "closure return of nil closure")
	assertf(child.joinCounter.Load() == 0, "returning closure with live children")
	assertf(child.status == closureReturning, "closure return of %v closure", child.status)
	assertf(child.ownerReadyDeque == nobody, "returning closure still in a deque")
	child.assertAlienation(w.self)
	assertf(!child.hasCallee, "returning closure with callee")
	assertf(child.callParent == nil, "spawned return with call parent")
	assertf(child.spawnParent != nil, "spawned return without spawn parent")

	alertf(alertReturn, w.self, "(closureReturn) child %p", child)

	parent := child.spawnParent

	// The child is in no deque and unlocked, but still linked with its
	// siblings; parent first, then child.
	parent.lock(w.self)
	assertf(parent.status != closureReturning, "parent is returning")
	assertf(parent.frame != nil, "parent has no frame")

	child.lock(w.self)
	parent.removeChild(w.self, child)
	child.unlock(w.self)

	if child.fiber != nil {
		w.fiberDeallocate(child.fiber)
		child.fiber = nil
	}
	w.closureDestroy(child)

	// The fenced decrement publishes everything the child wrote before
	// returning to whoever observes the new count.
	assertf(parent.joinCounter.Load() > 0, "join counter underflow")
	parent.joinCounter.Add(-1)

	res := w.provablyGoodStealMaybe(parent)
	parent.unlock(w.self)
	return res
}

// returnValue dispatches a RETURNING closure picked up by the
// scheduling loop.
func (w *Worker) returnValue(t *closure) *closure {
	assertf(t.status == closureReturning, "returnValue on %v closure", t.status)
	assertf(t.callParent == nil, "returning closure with call parent")
	return w.closureReturn(t)
}
