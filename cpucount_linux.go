//go:build linux

package forkjoin

import (
	"runtime"

	"golang.org/x/sys/unix"
)

// onlineCPUs returns the number of cores the process may run on,
// preferring the scheduler affinity mask over the raw core count so
// that restricted cpusets are honored.
func onlineCPUs() int {
	var set unix.CPUSet
	if err := unix.SchedGetaffinity(0, &set); err == nil {
		if n := set.Count(); n > 0 {
			return n
		}
	}
	return runtime.NumCPU()
}
