// Package jobserver implements the dispatch server: a single-threaded
// actor, replicated across N threads sharing one storage handle, that
// matches parked workers against ready jobs. Each Thread drains its own
// mailbox; correctness across threads rests entirely on the atomicity of
// the underlying jobstorage.Storage, not on any ordering between threads.
package jobserver
