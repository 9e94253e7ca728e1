// Package task provides persistent background task processing: a worker
// pool backed by a durable task store, crash recovery of unfinished tasks,
// and the pool refill task that keeps content pools stocked.
package task
