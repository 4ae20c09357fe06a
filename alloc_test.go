package forkjoin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClosureAllocatorRecycles(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]
	bindWorker(t, w)

	a := w.closureCreate()
	w.closureDestroy(a)
	b := w.closureCreate()

	// The worker free list is LIFO: the recycled closure comes back
	// first, fully reinitialized.
	assert.Same(t, a, b)
	assert.Equal(t, nobody, b.ownerReadyDeque)
	assert.Nil(t, b.spawnParent)
	assert.Equal(t, int32(0), b.joinCounter.Load())
	w.closureDestroy(b)
}

func TestClosureAllocatorBatchRefill(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]
	bindWorker(t, w)

	batch := g.opts.AllocBatch
	require.GreaterOrEqual(t, batch, 8)

	// Draining a fresh cache carves exactly one slab per batch.
	live := make([]*closure, 0, batch+1)
	for i := 0; i < batch; i++ {
		live = append(live, w.closureCreate())
	}
	assert.Equal(t, 0, w.closureCount)

	live = append(live, w.closureCreate())
	assert.Equal(t, batch-1, w.closureCount)

	for _, cl := range live {
		w.closureDestroy(cl)
	}
}

func TestClosureAllocatorDrainsToGlobal(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]
	bindWorker(t, w)

	max := w.closureCacheMax()
	live := make([]*closure, 0, max+2)
	for i := 0; i < max+2; i++ {
		live = append(live, w.closureCreate())
	}
	for _, cl := range live {
		w.closureDestroy(cl)
	}

	// Beyond the cache bound, a batch went back to the global pool.
	assert.LessOrEqual(t, w.closureCount, max)
	assert.NotNil(t, g.closurePool)
}

func TestMutexOwnerTracking(t *testing.T) {
	var m mutex
	m.owner = nobody

	m.lock(3)
	assert.Equal(t, int32(3), m.owner)
	m.assertOwnership(3, "test")
	m.unlock()
	assert.Equal(t, nobody, m.owner)

	require.True(t, m.tryLock(5))
	assert.False(t, m.tryLock(6))
	m.unlock()
}
