package programs

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	forkjoin "github.com/go-foundations/forkjoin"
)

func TestFibSerial(t *testing.T) {
	want := []int{0, 1, 1, 2, 3, 5, 8, 13, 21, 34, 55}
	for n, v := range want {
		assert.Equal(t, v, FibSerial(n))
	}
	assert.Equal(t, 6765, FibSerial(20))
}

func TestInitMatrixIsDeterministic(t *testing.T) {
	a := make([]int, 256)
	b := make([]int, 256)
	InitMatrix(a)
	InitMatrix(b)
	assert.Equal(t, a, b)

	// In-order fill: a prefix of a longer fill matches a shorter one.
	c := make([]int, 64)
	InitMatrix(c)
	assert.Equal(t, a[:64], c)
}

func TestMMBaseMatchesSerial(t *testing.T) {
	const n = 8 // below the divide-and-conquer threshold
	A := make([]int, n*n)
	B := make([]int, n*n)
	InitMatrix(A)
	InitMatrix(B)

	got := make([]int, n*n)
	mmBase(got, A, B, n, n)

	want := make([]int, n*n)
	MMSerial(want, A, B, n)
	assert.Equal(t, want, got)
}

func TestMMSerialKnownProduct(t *testing.T) {
	// [1 2; 3 4] * [5 6; 7 8] = [19 22; 43 50]
	A := []int{1, 2, 3, 4}
	B := []int{5, 6, 7, 8}
	C := make([]int, 4)
	MMSerial(C, A, B, 2)
	assert.Equal(t, []int{19, 22, 43, 50}, C)
}

func TestMMDacUnderRuntime(t *testing.T) {
	t.Setenv("CILK_NWORKERS", "")

	const n = 32 // two levels of recursion above the base case
	A := make([]int, n*n)
	B := make([]int, n*n)
	C := make([]int, n*n)
	InitMatrix(A)
	InitMatrix(B)

	opts := forkjoin.DefaultOptions()
	opts.NProc = 2
	rt := forkjoin.New(opts)
	code, err := rt.Run(MMDacMain(C, A, B, n), nil)
	require.NoError(t, err)
	require.Equal(t, 0, code)

	want := make([]int, n*n)
	MMSerial(want, A, B, n)
	assert.Equal(t, want, C)
}

func TestSpinRequiresASecondWorker(t *testing.T) {
	t.Setenv("CILK_NWORKERS", "")

	opts := forkjoin.DefaultOptions()
	opts.NProc = 2
	rt := forkjoin.New(opts)

	var stolenBy int32 = -1
	code, err := rt.Run(SpinMain(&stolenBy), nil)
	require.NoError(t, err)
	assert.Equal(t, 0, code)
	assert.GreaterOrEqual(t, stolenBy, int32(0))
	assert.GreaterOrEqual(t, rt.Stats().Steals, int64(1))
}
