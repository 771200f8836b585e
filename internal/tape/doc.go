// Package tape implements a disk-streaming circular audio buffer with tape
// transport semantics: absolute and relative seeks, forward play and reverse
// play over a multi-track file that is too large to hold in memory.
//
// A Streamer keeps a window of frames cached on both sides of the play
// position inside a fixed-capacity ring (Store). A single background worker
// owns all file I/O: it tops up whichever side has fallen below the low-water
// mark and writes overdubbed frames back to the file.
//
// Consumer operations never block on disk. Reads return whatever is cached
// and report short counts instead of errors; a seek outside the cached window
// discards the cache and the worker repopulates it.
//
// Locking:
//   - Every mutation of the ring, its counters and the play position happens
//     under Streamer.mu.
//   - The worker plans a refill under the lock, reads from the file with the
//     lock released, and commits under the lock only if no window-discarding
//     seek happened in between (tracked by a generation counter).
//   - Dirty frames are detached from the ring into a flush queue whenever
//     they are about to be discarded or evicted, so a pending write always
//     lands at the file position it was made at.
package tape
