package forkjoin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDequeAddExtract(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]
	bindWorker(t, w)

	a := w.closureCreate()
	b := w.closureCreate()
	c := w.closureCreate()

	w.dequeLockSelf()
	w.dequeAddBottom(w.self, a)
	w.dequeAddBottom(w.self, b)
	w.dequeAddBottom(w.self, c)

	assert.Same(t, a, w.dequePeekTop(w.self))
	assert.Same(t, c, w.dequePeekBottom(w.self))
	assert.Equal(t, w.self, a.ownerReadyDeque)
	assert.Equal(t, w.self, c.ownerReadyDeque)

	// Thieves take the top, the owner pops the bottom.
	top := w.dequeXtractTop(w.self)
	assert.Same(t, a, top)
	assert.Equal(t, nobody, top.ownerReadyDeque)

	bottom := w.dequeXtractBottom(w.self)
	assert.Same(t, c, bottom)

	assert.Same(t, b, w.dequePeekTop(w.self))
	assert.Same(t, b, w.dequePeekBottom(w.self))

	last := w.dequeXtractBottom(w.self)
	assert.Same(t, b, last)
	assert.Nil(t, w.dequePeekTop(w.self))
	assert.Nil(t, w.dequeXtractBottom(w.self))
	w.dequeUnlockSelf()

	for _, cl := range []*closure{a, b, c} {
		w.closureDestroy(cl)
	}
}

func TestDequeSingleEntry(t *testing.T) {
	g := newTestGlobal(t, 1)
	w := g.workers[0]
	bindWorker(t, w)

	a := w.closureCreate()

	w.dequeLockSelf()
	w.dequeAddBottom(w.self, a)
	assert.Same(t, a, w.dequePeekTop(w.self))
	assert.Same(t, a, w.dequePeekBottom(w.self))

	got := w.dequeXtractTop(w.self)
	assert.Same(t, a, got)
	assert.Nil(t, w.dequePeekBottom(w.self))
	w.dequeUnlockSelf()

	w.closureDestroy(a)
}

func TestDequeAtMostOne(t *testing.T) {
	// A closure sits in at most one deque; re-adding without
	// extraction is a contract violation.
	g := newTestGlobal(t, 2)
	w := g.workers[0]
	bindWorker(t, w)

	a := w.closureCreate()

	w.dequeLockSelf()
	w.dequeAddBottom(w.self, a)
	w.dequeUnlockSelf()

	w.dequeLock(1)
	require.Panics(t, func() { w.dequeAddBottom(1, a) })
	w.dequeUnlock(1)

	w.dequeLockSelf()
	w.dequeXtractBottom(w.self)
	w.dequeUnlockSelf()
	w.closureDestroy(a)
}

func TestDequeTryLock(t *testing.T) {
	g := newTestGlobal(t, 2)
	w0 := g.workers[0]
	w1 := g.workers[1]
	bindWorker(t, w0)

	require.True(t, w0.dequeTryLock(1))
	// A contended trylock fails silently; the thief just moves on.
	assert.False(t, w1.g.deques[1].mu.tryLock(w1.self))
	w0.dequeUnlock(1)
	assert.True(t, w1.g.deques[1].mu.tryLock(w1.self))
	w1.g.deques[1].mu.unlock()
}
