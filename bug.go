package forkjoin

import "fmt"

// BugError reports a fatal violation of a runtime invariant.  The
// scheduler does not attempt recovery: the computation is unwound and
// Run returns the error together with status 1.
type BugError struct {
	msg string
}

func (e *BugError) Error() string { return e.msg }

// bugf reports an internal contract violation.  It never returns.
func bugf(format string, args ...interface{}) {
	alertSetup()
	msg := fmt.Sprintf(format, args...)
	alertEvlog.Error().Msg(msg)
	panic(&BugError{msg: msg})
}

// assertf checks a runtime invariant and dies through bugf when it does
// not hold.
func assertf(cond bool, format string, args ...interface{}) {
	if !cond {
		bugf("assertion failed: "+format, args...)
	}
}
