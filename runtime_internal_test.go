package forkjoin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// newTestGlobal builds a runtime descriptor without starting its
// workers, for white-box protocol tests.
func newTestGlobal(t *testing.T, nproc int) *Global {
	t.Helper()
	t.Setenv("CILK_NWORKERS", "")

	opts := DefaultOptions()
	opts.NProc = nproc
	g, err := newGlobal(opts)
	require.NoError(t, err)
	t.Cleanup(g.cleanup)
	return g
}

// bindWorker attaches the test goroutine to w for the duration of the
// test, the way a scheduling context would be.
func bindWorker(t *testing.T, w *Worker) {
	t.Helper()
	tlsSetSelf(w, nil)
	t.Cleanup(tlsClearSelf)
}
