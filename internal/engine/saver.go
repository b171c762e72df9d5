package engine

import (
	"context"

	"chatd/pkg/types"
)

// saveLoop consumes completion records and stores each exchange as a user
// entry followed by an assistant entry. Every record is written in its own
// goroutine so storage latency never delays later completions. Failures are
// logged per entry and not retried; a failed user write does not stop the
// assistant write.
func (e *Engine) saveLoop() {
	for rec := range e.completions {
		rec := rec
		e.saveWG.Add(1)
		go func() {
			defer e.saveWG.Done()
			ctx := context.Background()
			if err := e.store.SaveEntry(ctx, rec.conversationID, types.ChatEntryUser, rec.input); err != nil {
				persistenceErrorsTotal.Inc()
				e.log.Error().Err(err).Msg("failed to save user chat entry")
			}
			if err := e.store.SaveEntry(ctx, rec.conversationID, types.ChatEntryAssistant, rec.output); err != nil {
				persistenceErrorsTotal.Inc()
				e.log.Error().Err(err).Msg("failed to save assistant chat entry")
			}
		}()
	}
}
