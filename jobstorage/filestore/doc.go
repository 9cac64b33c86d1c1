// Package filestore is the embedded-KV analogue of jobstorage's in-memory
// backend: a single serialized document, encoded by the codec matching the
// file's extension, holding the six logical trees named by the storage
// contract (job info, running, running-inverse, queue, stats, lock).
// FetchJobFromQueue takes a per-queue spinlock in the lock tree before
// mutating the queue tree, so the atomicity obligation holds even though
// every mutation rewrites the whole document.
package filestore
