// Package engine implements the inference scheduling core: a bounded worker
// loop that admits queued generation requests, advances every active session
// one step per tick, reassembles raw model output into valid text chunks, and
// hands finished conversational exchanges off for storage. It is structured
// into small files by concern:
//
//   - engine.go: Engine type, constructor, lifecycle (Start/Close/Wait), status.
//   - config.go: Config and package defaults.
//   - types.go: request/stream/completion value types.
//   - errors.go: error types and helpers (IsActivationError, IsReceiverGone).
//   - intake.go: goroutine bridging the inbound channel into the shared FIFO.
//   - scheduler.go: the tick loop (admission, stepping, reaping).
//   - session.go: per-request state machine and single-step logic.
//   - prompt.go: conversation prompt templating.
//   - tokenbuf.go: UTF-8 reassembly of raw output units.
//   - saver.go: persistence hand-off worker.
//   - metrics.go: prometheus instrumentation.
//
// Concurrency model: three goroutines per engine. The intake goroutine is the
// only writer that blocks on the queue lock; the scheduler only ever tries the
// lock, so contention defers admission to the next tick instead of stalling
// stepping. Active sessions are owned exclusively by the scheduler goroutine.
// The saver goroutine consumes completion records and issues each store call
// asynchronously so storage latency never backs up into the scheduler.
package engine
