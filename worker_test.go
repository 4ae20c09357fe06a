package forkjoin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTHEIndexBounds(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]

	// Queue bounds: base <= head <= tail <= capacity, exc >= head.
	assert.Equal(t, int64(1), w.head.Load())
	assert.Equal(t, int64(1), w.tail.Load())
	assert.GreaterOrEqual(t, w.exc.Load(), w.head.Load())
	assert.LessOrEqual(t, w.tail.Load(), int64(len(w.shadowStack)))

	w.resetTHE()
	assert.Equal(t, w.head.Load(), w.tail.Load())
}

func TestDekkerHandshake(t *testing.T) {
	g := newTestGlobal(t, 2)
	thief := g.workers[0]
	victim := g.workers[1]
	bindWorker(t, thief)

	cl := thief.closureCreate()
	cl.status = closureRunning
	cl.lock(thief.self)
	defer func() {
		cl.unlock(thief.self)
		cl.status = 0
		thief.closureDestroy(cl)
	}()

	// Empty victim queue: the thief must retract its exception.
	exc0 := victim.exc.Load()
	require.False(t, thief.doDekkerOn(victim, cl))
	assert.Equal(t, exc0, victim.exc.Load())

	// One exposed parent: the thief wins and the exception stays
	// raised until the victim resets it.
	victim.tail.Store(victim.head.Load() + 1)
	require.True(t, thief.doDekkerOn(victim, cl))
	assert.Equal(t, exc0+1, victim.exc.Load())
	assert.Greater(t, victim.exc.Load(), victim.head.Load()-1)

	victim.tail.Store(victim.head.Load())
	victim.exc.Store(victim.head.Load())
}

func TestExceptionPointerInfinityIsSticky(t *testing.T) {
	g := newTestGlobal(t, 2)
	thief := g.workers[0]
	victim := g.workers[1]
	bindWorker(t, thief)

	cl := thief.closureCreate()
	cl.status = closureRunning
	cl.lock(thief.self)

	victim.exc.Store(excInfinity)
	thief.incrementExceptionPointer(victim, cl)
	assert.Equal(t, excInfinity, victim.exc.Load())
	thief.decrementExceptionPointer(victim, cl)
	assert.Equal(t, excInfinity, victim.exc.Load())

	victim.exc.Store(victim.head.Load())
	cl.unlock(thief.self)
	cl.status = 0
	thief.closureDestroy(cl)
}

func TestWorkerRNGIsDeterministic(t *testing.T) {
	g := newTestGlobal(t, 2)
	w0 := g.workers[0]
	w1 := g.workers[1]

	w0.rtsSrand(7)
	w1.rtsSrand(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, w0.rtsRand(), w1.rtsRand())
	}

	// Distinct seeds diverge.
	w0.rtsSrand(1)
	w1.rtsSrand(2)
	same := 0
	for i := 0; i < 100; i++ {
		if w0.rtsRand() == w1.rtsRand() {
			same++
		}
	}
	assert.Less(t, same, 100)
}
