package forkjoin

import "sync"

// nobody is the sentinel worker id meaning "owned by no worker".
const nobody int32 = -1

// mutex wraps sync.Mutex with trylock and an owner slot used by the
// lock-ordering assertions.  The owner slot is written only while the
// lock is held, so plain stores suffice.
type mutex struct {
	mu    sync.Mutex
	owner int32
}

func (m *mutex) lock(self int32) {
	m.mu.Lock()
	m.owner = self
}

func (m *mutex) tryLock(self int32) bool {
	if !m.mu.TryLock() {
		return false
	}
	m.owner = self
	return true
}

func (m *mutex) unlock() {
	m.owner = nobody
	m.mu.Unlock()
}

// assertOwnership dies unless the lock is held by worker self.
func (m *mutex) assertOwnership(self int32, what string) {
	assertf(m.owner == self, "%s lock not owned by worker %d", what, self)
}

// assertAlienation dies if the lock is held by worker self.
func (m *mutex) assertAlienation(self int32, what string) {
	assertf(m.owner != self, "%s lock unexpectedly owned by worker %d", what, self)
}
