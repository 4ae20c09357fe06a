package forkjoin

// Internal closure allocator: per-worker free lists refilled in batches
// from a global pool, which in turn carves fresh slabs.  Free closures
// are chained through their nextReady link.  Allocation is off the hot
// spawn path (it only runs on promotion) but steals contend on it, so
// the worker-local cache matters.

// closureCacheMax bounds the worker cache; beyond it a batch drains
// back to the global pool.
func (w *Worker) closureCacheMax() int { return 2 * w.g.opts.AllocBatch }

// closureCreate returns an initialized closure from the worker's cache.
func (w *Worker) closureCreate() *closure {
	if w.closureCache == nil {
		w.closureRefill()
	}
	t := w.closureCache
	w.closureCache = t.nextReady
	w.closureCount--
	t.nextReady = nil
	closureInit(t)
	w.g.stats.closuresCreated.Add(1)
	return t
}

// closureDestroy sanity-checks and recycles a closure.
func (w *Worker) closureDestroy(t *closure) {
	assertf(t.leftSib == nil, "destroy of closure with left sibling")
	assertf(t.rightSib == nil, "destroy of closure with right sibling")
	assertf(t.rightMostChild == nil, "destroy of closure with children")
	assertf(t.fiber == nil, "destroy of closure holding a fiber")
	assertf(t.ownerReadyDeque == nobody, "destroy of closure in a deque")

	w.g.stats.closuresDestroyed.Add(1)
	t.nextReady = w.closureCache
	w.closureCache = t
	w.closureCount++
	if w.closureCount > w.closureCacheMax() {
		w.closureDrain()
	}
}

// closureRefill moves one batch from the global pool to the worker.
func (w *Worker) closureRefill() {
	g := w.g
	batch := g.opts.AllocBatch
	g.allocMu.lock(w.self)
	for i := 0; i < batch && g.closurePool != nil; i++ {
		t := g.closurePool
		g.closurePool = t.nextReady
		t.nextReady = w.closureCache
		w.closureCache = t
		w.closureCount++
	}
	g.allocMu.unlock()
	if w.closureCache != nil {
		return
	}
	// Global pool dry: carve a fresh slab.
	slab := make([]closure, batch)
	for i := range slab {
		slab[i].nextReady = w.closureCache
		w.closureCache = &slab[i]
	}
	w.closureCount += batch
}

// closureDrain returns one batch from the worker cache to the global
// pool.
func (w *Worker) closureDrain() {
	g := w.g
	batch := g.opts.AllocBatch
	g.allocMu.lock(w.self)
	for i := 0; i < batch && w.closureCache != nil; i++ {
		t := w.closureCache
		w.closureCache = t.nextReady
		w.closureCount--
		t.nextReady = g.closurePool
		g.closurePool = t
	}
	g.allocMu.unlock()
}

// closureCreateGlobal allocates a closure from the boot thread, used
// for the root closure before any worker runs.
func (g *Global) closureCreateGlobal() *closure {
	t := &closure{}
	closureInit(t)
	g.stats.closuresCreated.Add(1)
	return t
}

// closureDestroyGlobal releases a boot-thread allocation.
func (g *Global) closureDestroyGlobal(t *closure) {
	assertf(t.rightMostChild == nil, "destroy of closure with children")
	g.stats.closuresDestroyed.Add(1)
}
