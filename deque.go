package forkjoin

// readyDeque is the per-worker deque of closures.  The owner pushes and
// pops at the bottom; thieves peek and extract at the top.  Both ends
// require the deque lock.
//
//	     top
//	next | ^
//	     | | prev
//	     v |
//	     ...
//	     bottom
type readyDeque struct {
	mu          mutex
	top, bottom *closure
}

func (d *readyDeque) assertOwnership(self int32) { d.mu.assertOwnership(self, "deque") }

func (w *Worker) dequeLockSelf()   { w.g.deques[w.self].mu.lock(w.self) }
func (w *Worker) dequeUnlockSelf() { w.g.deques[w.self].mu.unlock() }

func (w *Worker) dequeLock(pn int32)   { w.g.deques[pn].mu.lock(w.self) }
func (w *Worker) dequeUnlock(pn int32) { w.g.deques[pn].mu.unlock() }

func (w *Worker) dequeTryLock(pn int32) bool { return w.g.deques[pn].mu.tryLock(w.self) }

// dequeXtractTop removes and returns the top closure of deque pn, or
// nil.  Caller holds pn's deque lock.
func (w *Worker) dequeXtractTop(pn int32) *closure {
	d := w.g.deques[pn]
	d.assertOwnership(w.self)

	cl := d.top
	if cl == nil {
		assertf(d.bottom == nil, "deque with bottom but no top")
		return nil
	}
	d.top = cl.nextReady
	if cl == d.bottom {
		assertf(cl.nextReady == nil, "deque bottom has next link")
		d.bottom = nil
	} else {
		assertf(cl.nextReady != nil, "deque top missing next link")
		cl.nextReady.prevReady = nil
	}
	cl.nextReady = nil
	cl.ownerReadyDeque = nobody
	return cl
}

// dequeXtractBottom removes and returns the bottom closure of deque pn,
// or nil.  Caller holds pn's deque lock.
func (w *Worker) dequeXtractBottom(pn int32) *closure {
	d := w.g.deques[pn]
	d.assertOwnership(w.self)

	cl := d.bottom
	if cl == nil {
		assertf(d.top == nil, "deque with top but no bottom")
		return nil
	}
	assertf(cl.ownerReadyDeque == pn, "bottom closure owned by wrong deque")
	d.bottom = cl.prevReady
	if cl == d.top {
		assertf(cl.prevReady == nil, "deque top has prev link")
		d.top = nil
	} else {
		assertf(cl.prevReady != nil, "deque bottom missing prev link")
		cl.prevReady.nextReady = nil
	}
	cl.prevReady = nil
	cl.ownerReadyDeque = nobody
	return cl
}

// dequePeekTop returns the top closure of deque pn without removing it.
// Caller holds pn's deque lock.
func (w *Worker) dequePeekTop(pn int32) *closure {
	d := w.g.deques[pn]
	d.assertOwnership(w.self)
	if d.top != nil {
		assertf(d.top.ownerReadyDeque == pn, "top closure owned by wrong deque")
	}
	return d.top
}

// dequePeekBottom returns the bottom closure of deque pn without
// removing it.  Caller holds pn's deque lock.
func (w *Worker) dequePeekBottom(pn int32) *closure {
	d := w.g.deques[pn]
	d.assertOwnership(w.self)
	if d.bottom != nil {
		assertf(d.bottom.ownerReadyDeque == pn, "bottom closure owned by wrong deque")
	}
	return d.bottom
}

// dequeAddBottom pushes cl at the bottom of deque pn.  Caller holds
// pn's deque lock; cl must be in no deque.
func (w *Worker) dequeAddBottom(pn int32, cl *closure) {
	d := w.g.deques[pn]
	d.assertOwnership(w.self)
	assertf(cl.ownerReadyDeque == nobody, "closure already in a deque")
	assertf(cl.nextReady == nil && cl.prevReady == nil, "closure has stale deque links")

	cl.prevReady = d.bottom
	cl.nextReady = nil
	cl.ownerReadyDeque = pn
	if d.bottom != nil {
		d.bottom.nextReady = cl
	} else {
		assertf(d.top == nil, "deque with top but no bottom")
		d.top = cl
	}
	d.bottom = cl
}
