package forkjoin

import "sync/atomic"

// statsCollector accumulates scheduler events across workers.
type statsCollector struct {
	stealAttempts      atomic.Int64
	steals             atomic.Int64
	provablyGoodSteals atomic.Int64
	suspensions        atomic.Int64
	exceptions         atomic.Int64
	setReturns         atomic.Int64
	closuresCreated    atomic.Int64
	closuresDestroyed  atomic.Int64
	fibersCreated      atomic.Int64
	fibersReused       atomic.Int64
	fibersFreed        atomic.Int64
	fibersInUse        atomic.Int64
}

// Stats is a point-in-time copy of the scheduler counters.
type Stats struct {
	StealAttempts      int64 // victim probes, successful or not
	Steals             int64 // successful promotions
	ProvablyGoodSteals int64 // parents revived locally by a returning child
	Suspensions        int64 // closures suspended at a sync or during promotion
	Exceptions         int64 // THE slow-path surrenders taken by victims
	SetReturns         int64 // called-child returns through the full-closure path
	ClosuresCreated    int64
	ClosuresDestroyed  int64
	FibersCreated      int64
	FibersReused       int64
	FibersFreed        int64
	FibersInUse        int64 // live fibers not in a pool; zero after shutdown
}

// snapshot copies the counters.
func (c *statsCollector) snapshot() Stats {
	return Stats{
		StealAttempts:      c.stealAttempts.Load(),
		Steals:             c.steals.Load(),
		ProvablyGoodSteals: c.provablyGoodSteals.Load(),
		Suspensions:        c.suspensions.Load(),
		Exceptions:         c.exceptions.Load(),
		SetReturns:         c.setReturns.Load(),
		ClosuresCreated:    c.closuresCreated.Load(),
		ClosuresDestroyed:  c.closuresDestroyed.Load(),
		FibersCreated:      c.fibersCreated.Load(),
		FibersReused:       c.fibersReused.Load(),
		FibersFreed:        c.fibersFreed.Load(),
		FibersInUse:        c.fibersInUse.Load(),
	}
}
