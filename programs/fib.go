package programs

import forkjoin "github.com/go-foundations/forkjoin"

// FibSerial computes the n-th Fibonacci number by plain binary
// recursion, as the reference for the parallel version.
func FibSerial(n int) int {
	if n < 2 {
		return n
	}
	return FibSerial(n-1) + FibSerial(n-2)
}

// Fib computes the n-th Fibonacci number, spawning the left branch and
// recursing serially into the right one before syncing.
func Fib(dest *int, n int) {
	if n < 2 {
		*dest = n
		return
	}

	var sf forkjoin.StackFrame
	forkjoin.EnterFrame(&sf)

	var x, y int
	afterCall := func() {
		forkjoin.Sync(&sf)
		*dest = x + y
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}
	afterSpawn := func() {
		forkjoin.SaveContext(&sf, afterCall)
		Fib(&y, n-2)
		afterCall()
	}

	forkjoin.SaveContext(&sf, afterSpawn)
	fibSpawnHelper(&x, n-1)
	afterSpawn()
}

func fibSpawnHelper(dest *int, n int) {
	var sf forkjoin.StackFrame
	forkjoin.EnterFrameFast(&sf)
	forkjoin.SaveContext(&sf, func() {
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	})
	forkjoin.Detach(&sf)
	Fib(dest, n)
	forkjoin.PopFrame(&sf)
	forkjoin.LeaveFrame(&sf)
}

// FibMain wraps Fib as a program entry: a spawning main that computes
// fib(n) into out and exits 0.
func FibMain(n int, out *int) forkjoin.MainFunc {
	return func(args []string, res *int) {
		var sf forkjoin.StackFrame
		forkjoin.EnterFrame(&sf)
		forkjoin.SaveContext(&sf, func() {
			*res = 0
			forkjoin.PopFrame(&sf)
			forkjoin.LeaveFrame(&sf)
		})
		Fib(out, n)
		*res = 0
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}
}
