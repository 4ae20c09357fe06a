package programs

import forkjoin "github.com/go-foundations/forkjoin"

// mmThreshold is the side length below which the divide-and-conquer
// multiply switches to the loop base case.
const mmThreshold = 16

// InitMatrix fills m with a deterministic pseudo-random pattern, in
// index order, so that serial and parallel runs see identical inputs.
func InitMatrix(m []int) {
	seed := uint32(1)
	for i := range m {
		seed = seed*1103515245 + 12345
		m[i] = int(seed>>16) % 100
	}
}

// MMSerial computes C += A*B with the sequential triple loop.  C, A and
// B are n×n matrices in row-major order.
func MMSerial(C, A, B []int, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				C[i*n+j] += A[i*n+k] * B[k*n+j]
			}
		}
	}
}

// mmBase is the loop base case over a length×length submatrix with row
// stride n.
func mmBase(C, A, B []int, n, length int) {
	for i := 0; i < length; i++ {
		for j := 0; j < length; j++ {
			for k := 0; k < length; k++ {
				C[i*n+j] += A[i*n+k] * B[k*n+j]
			}
		}
	}
}

type mmOp struct {
	c, a, b []int
}

// MMDac computes C += A*B by divide and conquer, spawning the four
// quadrant products of each half.  It only works on square power-of-two
// matrices; C, A and B address length×length submatrices with row
// stride n.
func MMDac(C, A, B []int, n, length int) {
	if length < mmThreshold {
		mmBase(C, A, B, n, length)
		return
	}

	var sf forkjoin.StackFrame
	forkjoin.EnterFrame(&sf)

	mid := length >> 1

	C00, C01 := C, C[mid:]
	C10, C11 := C[n*mid:], C[n*mid+mid:]
	A00, A01 := A, A[mid:]
	A10, A11 := A[n*mid:], A[n*mid+mid:]
	B00, B01 := B, B[mid:]
	B10, B11 := B[n*mid:], B[n*mid+mid:]

	round1 := [4]mmOp{
		{C00, A00, B00},
		{C01, A00, B01},
		{C10, A10, B00},
		{C11, A10, B01},
	}
	round2 := [4]mmOp{
		{C00, A01, B10},
		{C01, A01, B11},
		{C10, A11, B10},
		{C11, A11, B11},
	}

	var i1, i2 int
	finish := func() {
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}
	sync2 := func() {
		if sf.Unsynced() {
			forkjoin.Sync(&sf)
		}
		finish()
	}
	var spawn2 func()
	spawn2 = func() {
		for i2 < len(round2) {
			o := round2[i2]
			i2++
			forkjoin.SaveContext(&sf, spawn2)
			mmDacSpawnHelper(o.c, o.a, o.b, n, mid)
		}
		sync2()
	}
	sync1 := func() {
		if sf.Unsynced() {
			forkjoin.Sync(&sf)
		}
		spawn2()
	}
	var spawn1 func()
	spawn1 = func() {
		for i1 < len(round1) {
			o := round1[i1]
			i1++
			forkjoin.SaveContext(&sf, spawn1)
			mmDacSpawnHelper(o.c, o.a, o.b, n, mid)
		}
		sync1()
	}
	spawn1()
}

func mmDacSpawnHelper(C, A, B []int, n, length int) {
	var sf forkjoin.StackFrame
	forkjoin.EnterFrameFast(&sf)
	forkjoin.SaveContext(&sf, func() {
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	})
	forkjoin.Detach(&sf)
	MMDac(C, A, B, n, length)
	forkjoin.PopFrame(&sf)
	forkjoin.LeaveFrame(&sf)
}

// MMDacMain wraps MMDac as a program entry over n×n matrices.
func MMDacMain(C, A, B []int, n int) forkjoin.MainFunc {
	return func(args []string, res *int) {
		var sf forkjoin.StackFrame
		forkjoin.EnterFrame(&sf)
		forkjoin.SaveContext(&sf, func() {
			*res = 0
			forkjoin.PopFrame(&sf)
			forkjoin.LeaveFrame(&sf)
		})
		MMDac(C, A, B, n, n)
		*res = 0
		forkjoin.PopFrame(&sf)
		forkjoin.LeaveFrame(&sf)
	}
}
