package engine

import (
	"errors"
	"math/rand"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatd/internal/llm"
)

type sessionOutcome string

const (
	outcomeSuccess sessionOutcome = "success"
	outcomeDropped sessionOutcome = "dropped"
	outcomeError   sessionOutcome = "error"
)

// runningSession pairs an admitted request with a live model session and its
// streaming state. It is owned exclusively by the scheduler goroutine for its
// whole lifetime.
type runningSession struct {
	id     string
	sess   llm.Session
	params llm.InferParams
	req    *GenerationRequest
	limit  int

	buf       tokenBuffer
	processed int
	answer    strings.Builder
	prompt    string
	finished  bool

	// pending holds a chunk whose receiver was not ready; it is retried on
	// following ticks before any further inference. stallTicks counts the
	// consecutive failed attempts, bounded by stallLimit.
	pending    string
	stallTicks int
	stallLimit int

	log zerolog.Logger
}

func newRunningSession(model llm.Model, req *GenerationRequest, cfg Config, log zerolog.Logger) (*runningSession, error) {
	params := mergeParams(cfg.Params, req)
	limit := req.NumPredict
	if limit <= 0 {
		limit = cfg.NumPredict
	}
	params.MaxTokens = limit
	sess, err := model.StartSession(params)
	if err != nil {
		return nil, activationError{cause: err}
	}
	id := uuid.NewString()
	return &runningSession{
		id:         id,
		sess:       sess,
		params:     params,
		req:        req,
		limit:      limit,
		prompt:     buildPrompt(req),
		stallLimit: cfg.MaxStallTicks,
		log:        log.With().Str("session", id).Logger(),
	}, nil
}

// mergeParams layers per-request sampling overrides over the defaults.
func mergeParams(def llm.InferParams, req *GenerationRequest) llm.InferParams {
	p := def
	if req.NumBatch > 0 {
		p.Batch = req.NumBatch
	}
	if req.TopK > 0 {
		p.TopK = req.TopK
	}
	if req.TopP > 0 {
		p.TopP = req.TopP
	}
	if req.RepeatPenalty > 0 {
		p.RepeatPenalty = req.RepeatPenalty
	}
	if req.Temperature > 0 {
		p.Temperature = req.Temperature
	}
	p.PlayBackTokens = req.PlayBackTokens
	return p
}

// feedPrompt performs the one-time synchronous prompt feed. Failure aborts
// admission; the session never joins the active set.
func (s *runningSession) feedPrompt() error {
	s.log.Debug().Int("prompt_len", len(s.prompt)).Msg("feeding prompt")
	if err := s.sess.FeedPrompt(s.params, s.prompt); err != nil {
		_ = s.sess.Close()
		return activationError{cause: err}
	}
	return nil
}

// step advances the session by at most one chunk. It first retries a chunk
// held from a previous tick; otherwise it pulls raw units until the
// accumulator yields a complete chunk, then attempts delivery and returns,
// bounding the work done per session per tick. Delivery never blocks the
// caller: a not-ready receiver only defers this session to the next tick.
func (s *runningSession) step(rng *rand.Rand, completions chan<- completionRecord) error {
	if s.pending != "" {
		return s.deliver(completions)
	}
	for {
		raw, err := s.sess.InferNextToken(s.params, rng)
		if errors.Is(err, llm.ErrEndOfText) {
			s.log.Debug().Int("chunks", s.processed).Msg("end of inference")
			s.finish(outcomeSuccess, completions)
			return nil
		}
		if err != nil {
			s.sendErr(err)
			s.finish(outcomeError, completions)
			return stepError{session: s.id, cause: err}
		}
		chunk, ok := s.buf.Push(raw)
		if !ok {
			continue
		}
		s.processed++
		s.answer.WriteString(chunk)
		s.pending = chunk
		s.stallTicks = 0
		return s.deliver(completions)
	}
}

// deliver attempts a non-blocking send of the pending chunk. A receiver that
// is not ready keeps the chunk pending for the next tick; one that stays not
// ready past the stall bound, or whose context is done, is treated as gone.
func (s *runningSession) deliver(completions chan<- completionRecord) error {
	select {
	case s.req.Stream <- StreamResult{Token: s.pending}:
		chunksTotal.Inc()
		s.pending = ""
		s.stallTicks = 0
		return nil
	case <-s.req.Context.Done():
		s.finish(outcomeDropped, completions)
		return receiverGoneError{session: s.id}
	default:
		s.stallTicks++
		if s.stallTicks >= s.stallLimit {
			s.log.Warn().Int("stall_ticks", s.stallTicks).Msg("receiver stopped draining")
			s.finish(outcomeDropped, completions)
			return receiverGoneError{session: s.id}
		}
		return nil
	}
}

// sendErr surfaces a terminal error on the caller's stream without blocking.
func (s *runningSession) sendErr(err error) {
	select {
	case s.req.Stream <- StreamResult{Err: err}:
	case <-s.req.Context.Done():
	default:
	}
}

// finish moves the session to a terminal state, releases the model session,
// emits a completion record when eligible, and closes the caller's stream.
// Safe to call more than once; only the first call takes effect.
func (s *runningSession) finish(outcome sessionOutcome, completions chan<- completionRecord) {
	if s.finished {
		return
	}
	s.finished = true
	_ = s.sess.Close()
	if outcome != outcomeError && s.req.Chat != nil && s.answer.Len() > 0 {
		rec := completionRecord{
			conversationID: s.req.Chat.ConversationID,
			input:          s.req.Prompt,
			output:         s.answer.String(),
		}
		select {
		case completions <- rec:
		default:
			completionsDroppedTotal.Inc()
			s.log.Error().Msg("completion buffer full, dropping record")
		}
	}
	sessionsTotal.WithLabelValues(string(outcome)).Inc()
	close(s.req.Stream)
}
