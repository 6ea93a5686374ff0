// See barrier.go for Barrier/End and bucket.go for Bucket; both share the
// same parked-process bookkeeping shape (a kernel.RunQueue guarded by a
// plain mutex, drained and woken with the mutex already released).
package barrier
