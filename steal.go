package forkjoin

// Work stealing.
//
// Mutual exclusion between a thief and its victim uses a Dekker-like
// protocol over the victim's THE indices:
//
//	Thief:                          Victim (leave path):
//	  lock deque                      tail--
//	  exc++                           (ordered load)
//	  (ordered load)                  if exc > tail: slow path
//	  if head >= tail: exc--, give up
//	  else steal (head++, promote)
//	  unlock
//
// At most one side proceeds.  All closure mutations during a steal hold
// the deque lock before the closure lock; locks release child before
// parent.

// doDekkerOn runs the thief half of the handshake against victim.
// Returns true when the thief may take the frame at head.  Caller holds
// the victim's deque lock and cl's lock.
func (w *Worker) doDekkerOn(victim *Worker, cl *closure) bool {
	cl.assertOwnership(w.self)

	w.incrementExceptionPointer(victim, cl)
	// The exception raise and the index re-reads are both sequentially
	// consistent; the victim cannot pop past head without tripping on
	// the raised exception.
	if victim.head.Load() >= victim.tail.Load() {
		w.decrementExceptionPointer(victim, cl)
		return false
	}
	return true
}

// oldestNonStolenFrameInStacklet walks the call-parent chain from the
// exposed frame down to the oldest frame of the stacklet: the first
// detached frame, or the frame whose call parent is already promoted.
func oldestNonStolenFrameInStacklet(head *StackFrame) *StackFrame {
	cur := head
	for cur != nil && !cur.detached() &&
		cur.callParent != nil && !cur.callParent.stolen() {
		cur = cur.callParent
	}
	return cur
}

// setupCallParentClosureHelper promotes, oldest first, the called
// frames between the stacklet's oldest closure and frame, chaining each
// as the callee of the one below.  Returns the closure that should be
// the call parent of the frame above.
func (w *Worker) setupCallParentClosureHelper(victim *Worker, frame *StackFrame, oldest *closure) *closure {
	if oldest.frame == frame {
		assertf(frame.stolen(), "stacklet oldest frame not promoted")
		return oldest
	}

	callParent := w.setupCallParentClosureHelper(victim, frame.callParent, oldest)
	frame.setStolen()
	cur := w.closureCreate()
	cur.frame = frame

	assertf(frame.worker.Load() == victim, "stacklet frame on wrong worker")
	cur.status = closureSuspended
	frame.worker.Store(nil)

	callParent.addCallee(cur)
	return cur
}

// setupClosuresInStacklet promotes every frame of the stolen stacklet
// to a full closure: the youngest (the frame being stolen) is
// youngestCl, the oldest belongs to the deque-top closure, and each
// called frame in between becomes a suspended closure in a callee
// chain.
func (w *Worker) setupClosuresInStacklet(victim *Worker, youngestCl *closure) {
	oldestCl := youngestCl.callParent
	youngest := youngestCl.frame
	oldest := oldestNonStolenFrameInStacklet(youngest)

	assertf(oldestCl != nil, "stacklet without oldest closure")
	assertf(youngest.worker.Load() == victim, "stolen frame on wrong worker")
	assertf(!youngest.stolen(), "stolen frame already promoted")

	if oldestCl.frame == nil {
		// The top closure was a lazily promoted spawn child; its frame
		// is the oldest detached frame of this stacklet.
		assertf(oldest.detached(), "stacklet oldest frame not detached")
		assertf(oldest != youngest, "detached frame exposed on the deque")
		oldest.setStolen()
		oldestCl.frame = oldest
	} else {
		assertf(oldestCl.frame == oldest.callParent, "stacklet does not reach top closure")
		assertf(oldestCl.frame.stolen(), "top closure frame not promoted")
	}
	assertf(oldestCl.frame.worker.Load() == victim, "top closure frame on wrong worker")
	oldestCl.frame.worker.Store(nil)

	callParent := w.setupCallParentClosureHelper(victim, youngest.callParent, oldestCl)
	youngest.setStolen()
	callParent.addCallee(youngestCl)
}

// promoteChild promotes the exposed child frame at the victim's head to
// a full closure and creates the closure for the spawned child the
// victim keeps executing.
//
// Caller (the thief) holds the victim's deque lock and cl's lock, where
// cl is the victim's deque-top closure.  On return the thief holds the
// lock of the promoted spawn parent: cl itself when the exposed frame
// already belongs to it, otherwise a freshly created closure returned
// through res (cl has then been suspended, unlocked and removed from
// the deque).  The new child closure is pushed at the victim's deque
// bottom and the victim's head advances past the stolen frame.
func (w *Worker) promoteChild(victim *Worker, cl *closure, res **closure) *closure {
	pn := victim.self

	cl.assertOwnership(w.self)
	w.g.deques[pn].assertOwnership(w.self)
	assertf(cl.status == closureRunning, "promote on %v closure", cl.status)
	assertf(cl.ownerReadyDeque == pn, "promote on closure outside victim deque")
	assertf(cl.nextReady == nil, "promote on closure above deque bottom")
	assertf(cl == w.g.rootClosure || cl.spawnParent != nil || cl.callParent != nil,
		"promote on unlinked closure")

	head := victim.head.Load()
	assertf(head <= victim.exc.Load(), "head above exception pointer")
	// head == tail is possible here: the victim may have decremented
	// tail after losing the handshake; it is now stuck on the deque
	// lock and will surrender once it rereads the exception.
	assertf(head <= victim.tail.Load(), "head above tail")

	frameToSteal := victim.shadowStack[head]
	assertf(frameToSteal != nil, "empty slot at shadow stack head")

	// The victim keeps running the spawned child on its current fiber;
	// that fiber follows the new child closure.
	victimFiber := cl.fiber
	assertf(victimFiber != nil, "running closure without fiber")
	cl.fiber = nil

	var spawnParent *closure
	if cl.frame == frameToSteal {
		// The exposed parent is already cl's frame: cl is the root
		// closure or has been stolen before; reuse it.
		spawnParent = cl
	} else {
		// The exposed parent is buried in a stacklet cl knows nothing
		// about: promote it into a fresh closure and remember that cl
		// has called descendants, so no returning child revives cl
		// before the callee chain is in place.
		spawnParent = w.closureCreate()
		spawnParent.frame = frameToSteal
		spawnParent.status = closureRunning
		cl.addTempCallee(spawnParent)

		w.closureSuspendVictim(pn, cl)
		cl.unlock(w.self)

		spawnParent.lock(w.self)
		*res = spawnParent
	}

	assertf(!spawnParent.hasCallee, "promoted parent has callee")
	spawnChild := w.closureCreate()
	spawnChild.spawnParent = spawnParent
	spawnChild.status = closureRunning
	spawnChild.fiber = victimFiber

	// Register the child before its pointer escapes, so the sibling
	// links exist by the time anyone can see it.
	spawnParent.addChild(w.self, spawnChild)

	victim.head.Store(head + 1)
	// The child's own frame is bound lazily, at its leave.
	spawnChild.frame = nil

	w.dequeAddBottom(pn, spawnChild)
	return spawnChild
}

// finishPromote completes the promotion of the parent: promote the rest
// of the stacklet if needed, bump the join counter for the new child,
// and make the parent ready for the thief.  Caller holds the parent's
// lock; the victim's deque lock has been released.
func (w *Worker) finishPromote(victim *Worker, parent, child *closure) {
	parent.assertOwnership(w.self)
	child.assertAlienation(w.self)
	assertf(!parent.hasCallee, "finishPromote with outstanding callee")

	parent.joinCounter.Add(1)

	if !parent.frame.stolen() {
		w.setupClosuresInStacklet(victim, parent)
	}
	assertf(parent.frame.stolen(), "promoted parent frame not marked stolen")

	parent.frame.setUnsynced()
	parent.status = closureReady
}

// stealFrom attempts one steal from the given victim.  Every failure
// lock contention, empty deque, a returning top closure, a lost
// (lock contention, empty deque, a returning top closure, a lost
// handshake) is silent and returns nil.  On success the promoted
// parent is returned READY, backed by a fresh fiber, for the thief's
// scheduling loop to execute.
func (w *Worker) stealFrom(victim int32) *closure {
	g := w.g
	g.stats.stealAttempts.Add(1)

	if !w.dequeTryLock(victim) {
		return nil
	}

	cl := w.dequePeekTop(victim)
	if cl == nil {
		w.dequeUnlock(victim)
		return nil
	}
	if !cl.tryLock(w.self) {
		w.dequeUnlock(victim)
		return nil
	}

	victimWorker := g.workers[victim]

	switch cl.status {
	case closureReady:
		bugf("ready closure in ready deque")

	case closureSuspended:
		bugf("suspended closure in ready deque")

	case closureReturning:
		// Let it leave alone.
		cl.unlock(w.self)
		w.dequeUnlock(victim)

	case closureRunning:
		if !w.doDekkerOn(victimWorker, cl) {
			cl.unlock(w.self)
			w.dequeUnlock(victim)
			return nil
		}

		// We won the handshake: promote the exposed child and steal
		// the parent.
		var res *closure
		child := w.promoteChild(victimWorker, cl, &res)
		if res == nil {
			// The parent is cl itself; detach it from the deque.
			res = w.dequeXtractTop(victim)
			assertf(res == cl, "deque top changed during promote")
		}
		res.assertOwnership(w.self)
		w.dequeUnlock(victim)

		// More steals can hit the victim from here on.
		w.finishPromote(victimWorker, res, child)

		assertf(res.rightMostChild == child, "promoted child not right-most")
		// The frame still names the victim as owner; the thief takes
		// it over in setupForExecution.
		assertf(res.frame.worker.Load() == victimWorker, "promoted parent frame changed owner")

		// A fresh fiber carries the stolen continuation; the victim
		// keeps its fiber for the already-running child.
		f := w.fiberAllocate()
		f.resumeSF = res.frame
		res.fiber = f

		res.unlock(w.self)
		g.stats.steals.Add(1)
		alertf(alertSteal, w.self, "(stealFrom) stole closure %p from worker %d", res, victim)
		return res

	default:
		bugf("unknown closure status %v", cl.status)
	}
	return nil
}

// provablyGoodStealMaybe revives parent on the calling worker when the
// returning child was the last obstacle: parent suspended at its sync,
// join counter zero, no called child.  Returns parent READY, or nil.
// Caller holds parent's lock.
func (w *Worker) provablyGoodStealMaybe(parent *closure) *closure {
	parent.assertOwnership(w.self)

	if parent.hasChildren() || parent.status != closureSuspended {
		w.provablyGoodSteal = false
		return nil
	}

	assertf(parent.frame != nil, "provably-good steal of closure without frame")
	assertf(parent.frame.worker.Load() == nil, "provably-good steal of owned frame")
	assertf(parent.ownerReadyDeque == nobody, "provably-good steal of enqueued closure")

	w.provablyGoodSteal = true
	parent.frame.worker.Store(w)
	parent.frame.setSynced()
	parent.frame.clearFlag(frameSuspended)
	parent.status = closureReady
	parent.resumedBy = w.self

	w.g.stats.provablyGoodSteals.Add(1)
	alertf(alertSteal, w.self, "(provablyGoodSteal) revived parent %p", parent)
	return parent
}
