//go:build !linux

package forkjoin

import "runtime"

// onlineCPUs returns the number of online cores.
func onlineCPUs() int {
	return runtime.NumCPU()
}
