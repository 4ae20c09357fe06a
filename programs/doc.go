// Package programs holds hand-compiled fork-join kernels: spawning
// functions written directly against the runtime's calling convention,
// the way a compiler would lower them.  They serve as the workloads of
// the benchmarks and as the end-to-end test programs.
//
// The convention, visible in every function here:
//
//   - a spawning function declares a StackFrame, enters it, and saves a
//     continuation covering the rest of its body before every spawn and
//     before every call into another spawning function;
//   - spawns go through a helper that enters a fast frame, saves its
//     trailing pop/leave as context, detaches, and calls the spawned
//     function;
//   - results travel through pointers, never return values, because a
//     continuation may finish the function on another worker.
package programs
