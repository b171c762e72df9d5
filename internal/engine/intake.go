package engine

// intake bridges the inbound channel into the shared FIFO. When the queue
// lock is held by the scheduler, arrivals are staged locally in arrival order
// and flushed ahead of the newest arrival on the next acquisition, so FIFO
// order is preserved and no request is ever lost.
func (e *Engine) intake() {
	var staged []*GenerationRequest
	for req := range e.inbound {
		if e.qmu.TryLock() {
			e.queue = append(e.queue, staged...)
			e.queue = append(e.queue, req)
			staged = staged[:0]
			queueDepthGauge.Set(float64(len(e.queue)))
			e.qmu.Unlock()
		} else {
			staged = append(staged, req)
		}
	}
	// Producers are gone. Flush anything still staged so it is not lost; a
	// blocking acquisition is fine here, the scheduler never waits on us.
	if len(staged) > 0 {
		e.qmu.Lock()
		e.queue = append(e.queue, staged...)
		queueDepthGauge.Set(float64(len(e.queue)))
		e.qmu.Unlock()
	}
	e.intakeClosed.Store(true)
	e.log.Warn().Msg("request channel closed, intake halted")
}
