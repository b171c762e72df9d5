package engine

import (
	"context"
	"time"
)

// run is the scheduler: a single goroutine that admits queued requests up to
// free capacity, steps every active session once per tick, reaps finished
// sessions, and sleeps the tick interval. It exits when the context is
// canceled, or once intake has halted and all admitted work has drained.
func (e *Engine) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			e.abortActive()
			return
		default:
		}

		e.admit()

		for _, s := range e.active {
			if s.finished {
				continue
			}
			if s.pending == "" && s.processed >= s.limit {
				s.log.Debug().Int("limit", s.limit).Msg("token limit reached")
				s.finish(outcomeSuccess, e.completions)
				continue
			}
			if err := s.step(e.rng, e.completions); err != nil {
				e.log.Error().Err(err).Msg("session terminated")
			}
		}

		e.reap()

		if e.intakeClosed.Load() && len(e.active) == 0 && e.queueEmpty() {
			e.log.Info().Msg("intake halted and all sessions drained, scheduler stopping")
			return
		}

		select {
		case <-ctx.Done():
		case <-time.After(e.cfg.TickInterval):
		}
	}
}

// admit dequeues up to free capacity and activates each request. The queue
// lock is only tried; contention defers admission to the next tick. The
// synchronous prompt feed happens after the lock is released.
func (e *Engine) admit() {
	free := e.cfg.MaxSessions - len(e.active)
	if free <= 0 {
		return
	}
	if !e.qmu.TryLock() {
		return
	}
	n := free
	if n > len(e.queue) {
		n = len(e.queue)
	}
	batch := make([]*GenerationRequest, n)
	copy(batch, e.queue[:n])
	e.queue = append(e.queue[:0], e.queue[n:]...)
	queueDepthGauge.Set(float64(len(e.queue)))
	e.qmu.Unlock()

	for _, req := range batch {
		e.activate(req)
	}
}

// activate builds a session and feeds its prompt. Failure drops the request:
// logged, surfaced on the caller's stream, no capacity slot consumed.
func (e *Engine) activate(req *GenerationRequest) {
	rs, err := newRunningSession(e.model, req, e.cfg, e.log)
	if err == nil {
		err = rs.feedPrompt()
	}
	if err != nil {
		activationFailuresTotal.Inc()
		e.log.Error().Err(err).Msg("failed to initialize inference session")
		select {
		case req.Stream <- StreamResult{Err: err}:
		default:
		}
		close(req.Stream)
		return
	}
	e.active = append(e.active, rs)
	e.activeCount.Store(int64(len(e.active)))
	activeSessionsGauge.Set(float64(len(e.active)))
}

// reap removes finished sessions from the active set.
func (e *Engine) reap() {
	kept := e.active[:0]
	for _, s := range e.active {
		if !s.finished {
			kept = append(kept, s)
		}
	}
	for i := len(kept); i < len(e.active); i++ {
		e.active[i] = nil
	}
	e.active = kept
	e.activeCount.Store(int64(len(e.active)))
	activeSessionsGauge.Set(float64(len(e.active)))
}

// abortActive terminates remaining sessions on hard shutdown. Eligible
// completion records are still emitted; the saver drains them before exiting.
func (e *Engine) abortActive() {
	for _, s := range e.active {
		if !s.finished {
			s.finish(outcomeDropped, e.completions)
		}
	}
	e.active = nil
	e.activeCount.Store(0)
	activeSessionsGauge.Set(0)
}

// queueEmpty tries the lock; a contended lock means intake is mid-flush, so
// the queue is treated as non-empty and the scheduler keeps ticking.
func (e *Engine) queueEmpty() bool {
	if !e.qmu.TryLock() {
		return false
	}
	defer e.qmu.Unlock()
	return len(e.queue) == 0
}
