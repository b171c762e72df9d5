package engine

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/llm"
	"chatd/internal/store"
	"chatd/pkg/types"
)

// Engine owns the intake queue, the active session set, and the persistence
// hand-off. Construct with New, then call Start exactly once.
type Engine struct {
	cfg   Config
	model llm.Model
	store store.ChatStore
	log   zerolog.Logger

	inbound     chan *GenerationRequest
	completions chan completionRecord

	// qmu guards queue. The scheduler only ever tries this lock.
	qmu   sync.Mutex
	queue []*GenerationRequest

	// active is touched by the scheduler goroutine only.
	active []*runningSession
	rng    *rand.Rand

	submitMu     sync.RWMutex
	submitClosed bool

	activeCount  atomic.Int64
	intakeClosed atomic.Bool
	startTime    time.Time

	wg     sync.WaitGroup
	saveWG sync.WaitGroup
}

// New constructs an Engine. The model must already be loaded; the store
// receives completed conversational exchanges.
func New(model llm.Model, st store.ChatStore, cfg Config, log zerolog.Logger) *Engine {
	cfg = cfg.withDefaults()
	return &Engine{
		cfg:         cfg,
		model:       model,
		store:       st,
		log:         log.With().Str("component", "engine").Logger(),
		inbound:     make(chan *GenerationRequest, defaultInboundBuffer),
		completions: make(chan completionRecord, cfg.CompletionBuffer),
		rng:         rand.New(rand.NewSource(time.Now().UnixNano())),
		startTime:   time.Now(),
	}
}

// Start launches the intake, scheduler, and saver goroutines. The context
// stops the scheduler hard; the graceful path is Close followed by Wait.
func (e *Engine) Start(ctx context.Context) {
	e.wg.Add(3)
	go func() {
		defer e.wg.Done()
		e.intake()
	}()
	go func() {
		defer e.wg.Done()
		e.run(ctx)
		close(e.completions)
	}()
	go func() {
		defer e.wg.Done()
		e.saveLoop()
	}()
}

// Submit hands a request to the engine. After Submit the request belongs to
// the engine; the caller keeps only the receive side of req.Stream. Returns
// an error (IsClosed) once the engine no longer accepts requests.
func (e *Engine) Submit(req *GenerationRequest) error {
	if req.Stream == nil {
		return errInvalidRequest{reason: "nil stream"}
	}
	if req.Context == nil {
		req.Context = context.Background()
	}
	e.submitMu.RLock()
	defer e.submitMu.RUnlock()
	if e.submitClosed {
		return closedError{}
	}
	e.inbound <- req
	return nil
}

// Close stops intake. Already-admitted sessions drain to completion; Wait
// blocks until everything, including pending store writes, has finished.
func (e *Engine) Close() {
	e.submitMu.Lock()
	defer e.submitMu.Unlock()
	if e.submitClosed {
		return
	}
	e.submitClosed = true
	close(e.inbound)
}

// Wait blocks until all engine goroutines have exited.
func (e *Engine) Wait() {
	e.wg.Wait()
	e.saveWG.Wait()
}

// Ready reports whether the engine can serve requests.
func (e *Engine) Ready() bool {
	return e.model != nil && !e.intakeClosed.Load()
}

// Status returns a read-only snapshot for /status.
func (e *Engine) Status() types.StatusResponse {
	e.qmu.Lock()
	queued := len(e.queue)
	e.qmu.Unlock()
	now := time.Now()
	return types.StatusResponse{
		ActiveSessions: int(e.activeCount.Load()),
		QueuedRequests: queued,
		MaxSessions:    e.cfg.MaxSessions,
		ModelPath:      e.model.Path(),
		IntakeClosed:   e.intakeClosed.Load(),
		UptimeSeconds:  int64(now.Sub(e.startTime).Seconds()),
		ServerTimeUnix: now.Unix(),
	}
}
