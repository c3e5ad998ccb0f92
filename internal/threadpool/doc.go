// Package threadpool provides a fixed-size pool of long-lived worker
// goroutines fed from one unbounded job queue.
//
// Workers are created once, when the pool is built, and live until the pool
// is closed. They share a single receiving end of the queue behind a mutex,
// so exactly one worker dequeues at a time and no job is delivered twice.
//
// # Basic Usage
//
//	pool, err := threadpool.Build(4)
//	if err != nil {
//	    return err // *threadpool.CreationError, KindBadArgument
//	}
//	defer pool.Close()
//
//	for conn := range conns {
//	    pool.Execute(func() {
//	        handle(conn)
//	    })
//	}
//
// New is the panicking variant of Build for sizes known to be valid.
//
// # Graceful Shutdown
//
// Close releases the sending end of the queue and then joins every worker.
// Jobs already queued still run; Close returns once every worker has left
// its loop. There is no timeout and no cancellation: a job that never
// returns blocks Close forever.
//
// Execute panics once Close has started. Submit is the error-returning
// counterpart.
//
// # Panics
//
// A job that panics is recovered by its worker, reported through the
// logger, the event bus and Config.PanicHandler, and the worker keeps
// serving. A panic while the queue lock is held poisons the lock; what the
// remaining workers do then is chosen by Config.PoisonPolicy.
package threadpool
