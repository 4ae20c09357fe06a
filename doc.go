// Package forkjoin is a user-space runtime that executes fork-join
// parallel programs on a fixed pool of workers using randomized work
// stealing.
//
// The runtime implements the lazy-task ("work-first") discipline: a
// spawn costs only a frame push onto the spawning worker's shadow
// stack, and a spawned computation is promoted to a first-class,
// migratable closure only when a thief actually steals it.  Victim and
// thief synchronize on the shadow stack through the THE protocol, a
// Dekker-style handshake over the Tail, Head and Exception indices.
//
// Programs are written against the hand-compiled calling convention:
//
//   - every spawning function declares a StackFrame and brackets its
//     body with EnterFrame / PopFrame / LeaveFrame;
//   - a spawn goes through a helper function that calls EnterFrameFast,
//     Detach, the spawned function, then PopFrame and LeaveFrame;
//   - before every spawn and before every direct call into another
//     spawning function, the caller saves the rest of its body as a
//     continuation with SaveContext; results travel through pointers;
//   - Sync waits for all children spawned since the previous sync.
//
// See programs/fib.go for the canonical program shape.
package forkjoin
