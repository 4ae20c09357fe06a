package programs

import (
	"sync/atomic"

	forkjoin "github.com/go-foundations/forkjoin"
)

// Spin demonstrates a forced steal: the spawned child busy-waits on a
// flag that only the parent's continuation sets, so the program can
// finish only once a thief has stolen the continuation.  It requires at
// least two workers.
//
// stolenBy, when non-nil, receives the id of the worker that executed
// the continuation.
func Spin(stolenBy *int32) {
	var sf forkjoin.StackFrame
	forkjoin.EnterFrame(&sf)

	var release atomic.Bool
	afterSpawn := func() {
		if stolenBy != nil {
			*stolenBy = int32(forkjoin.CurrentWorker().Self())
		}
		release.Store(true)
		forkjoin.Sync(&sf)
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}

	forkjoin.SaveContext(&sf, afterSpawn)
	spinSpawnHelper(&release)
	afterSpawn()
}

func spinSpawnHelper(release *atomic.Bool) {
	var sf forkjoin.StackFrame
	forkjoin.EnterFrameFast(&sf)
	forkjoin.SaveContext(&sf, func() {
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	})
	forkjoin.Detach(&sf)
	for !release.Load() {
	}
	forkjoin.PopFrame(&sf)
	forkjoin.LeaveFrame(&sf)
}

// SpinMain wraps Spin as a program entry.
func SpinMain(stolenBy *int32) forkjoin.MainFunc {
	return func(args []string, res *int) {
		var sf forkjoin.StackFrame
		forkjoin.EnterFrame(&sf)
		forkjoin.SaveContext(&sf, func() {
			*res = 0
			forkjoin.PopFrame(&sf)
			forkjoin.LeaveFrame(&sf)
		})
		Spin(stolenBy)
		*res = 0
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}
}
