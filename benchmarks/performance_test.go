// Package benchmarks compares the parallel runtime against serial
// execution on the classic kernels.
//
// Run with: go test -bench=. -benchmem ./benchmarks
package benchmarks

import (
	"testing"

	forkjoin "github.com/go-foundations/forkjoin"
	"github.com/go-foundations/forkjoin/programs"
)

const fibN = 24

func BenchmarkFibSerial(b *testing.B) {
	for i := 0; i < b.N; i++ {
		if programs.FibSerial(fibN) != 46368 {
			b.Fatal("wrong result")
		}
	}
}

func benchmarkFib(b *testing.B, nproc int) {
	opts := forkjoin.DefaultOptions()
	opts.NProc = nproc
	rt := forkjoin.New(opts)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		var out int
		code, err := rt.Run(programs.FibMain(fibN, &out), nil)
		if err != nil || code != 0 || out != 46368 {
			b.Fatalf("run failed: code=%d out=%d err=%v", code, out, err)
		}
	}
}

func BenchmarkFib1Worker(b *testing.B)  { benchmarkFib(b, 1) }
func BenchmarkFib2Workers(b *testing.B) { benchmarkFib(b, 2) }
func BenchmarkFib4Workers(b *testing.B) { benchmarkFib(b, 4) }
func BenchmarkFibAllCores(b *testing.B) { benchmarkFib(b, 0) }

func benchmarkMMDac(b *testing.B, nproc int) {
	const n = 128
	A := make([]int, n*n)
	B := make([]int, n*n)
	programs.InitMatrix(A)
	programs.InitMatrix(B)

	opts := forkjoin.DefaultOptions()
	opts.NProc = nproc
	rt := forkjoin.New(opts)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		C := make([]int, n*n)
		code, err := rt.Run(programs.MMDacMain(C, A, B, n), nil)
		if err != nil || code != 0 {
			b.Fatalf("run failed: code=%d err=%v", code, err)
		}
	}
}

func BenchmarkMMDacSerial(b *testing.B) {
	const n = 128
	A := make([]int, n*n)
	B := make([]int, n*n)
	programs.InitMatrix(A)
	programs.InitMatrix(B)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		C := make([]int, n*n)
		programs.MMSerial(C, A, B, n)
	}
}

func BenchmarkMMDac1Worker(b *testing.B)  { benchmarkMMDac(b, 1) }
func BenchmarkMMDacAllCores(b *testing.B) { benchmarkMMDac(b, 0) }
