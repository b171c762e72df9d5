//go:build llama

package llm

import (
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync"

	llama "github.com/go-skynet/go-llama.cpp"
)

// load validates the model file by loading it once, then frees it. Sessions
// each get their own llama context from StartSession: the binding keeps a
// single token callback per context and a context must never be evaluated by
// two goroutines, so sharing one across concurrent sessions would cross-wire
// their token streams.
func load(path string, opts LoadOptions) (Model, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("model path is empty")
	}
	if opts.Progress != nil {
		opts.Progress(fmt.Sprintf("loading model from %s (ctx=%d)", path, opts.CtxTokens))
	}
	mo := []llama.ModelOption{llama.SetContext(opts.CtxTokens)}
	if opts.Float16 {
		mo = append(mo, llama.EnableF16Memory)
	}
	m, err := llama.New(path, mo...)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	m.Free()
	if opts.Progress != nil {
		opts.Progress("model validated")
	}
	return &llamaModel{path: path, opts: mo}, nil
}

type llamaModel struct {
	path string
	opts []llama.ModelOption
}

func (lm *llamaModel) Path() string { return lm.path }

func (lm *llamaModel) StartSession(params InferParams) (Session, error) {
	m, err := llama.New(lm.path, lm.opts...)
	if err != nil {
		return nil, fmt.Errorf("start session: %w", err)
	}
	return &llamaSession{
		model:  m,
		tokens: make(chan []byte),
		stop:   make(chan struct{}),
		done:   make(chan struct{}),
	}, nil
}

// llamaSession owns one llama context and bridges the binding's push-style
// token callback into the pull-style InferNextToken the engine expects.
// Predict runs in its own goroutine and blocks on the tokens channel between
// pulls, so generation advances exactly one unit per engine step.
type llamaSession struct {
	model  *llama.LLama
	tokens chan []byte
	stop   chan struct{}
	done   chan struct{}

	startOnce sync.Once
	started   bool
	stopOnce  sync.Once
	genErr    error
}

// FeedPrompt starts the generation goroutine. The binding has no separate
// prompt-ingestion call; the prompt is processed inside Predict, so feed
// errors surface on the first InferNextToken instead.
func (s *llamaSession) FeedPrompt(params InferParams, prompt string) error {
	s.startOnce.Do(func() {
		s.started = true
		s.model.SetTokenCallback(func(tok string) bool {
			select {
			case s.tokens <- []byte(tok):
				return true
			case <-s.stop:
				return false
			}
		})
		po := predictOptions(params)
		go func() {
			defer close(s.done)
			_, err := s.model.Predict(prompt, po...)
			if err != nil {
				s.genErr = err
			}
			close(s.tokens)
		}()
	})
	return nil
}

func (s *llamaSession) InferNextToken(params InferParams, rng *rand.Rand) ([]byte, error) {
	tok, ok := <-s.tokens
	if !ok {
		if s.genErr != nil {
			select {
			case <-s.stop:
				// Stopped by Close; treat as end of stream.
				return nil, ErrEndOfText
			default:
			}
			return nil, s.genErr
		}
		return nil, ErrEndOfText
	}
	return tok, nil
}

func (s *llamaSession) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started {
		// Drain until the generation goroutine exits before freeing.
		for range s.tokens {
		}
		<-s.done
	}
	s.model.Free()
	return nil
}

func predictOptions(params InferParams) []llama.PredictOption {
	po := []llama.PredictOption{
		llama.SetThreads(nz(params.Threads, 4)),
		llama.SetBatch(nz(params.Batch, llama.DefaultOptions.Batch)),
		llama.SetTopK(nz(params.TopK, llama.DefaultOptions.TopK)),
		llama.SetTopP(nzf(params.TopP, llama.DefaultOptions.TopP)),
		llama.SetTemperature(nzf(params.Temperature, llama.DefaultOptions.Temperature)),
		llama.SetPenalty(nzf(params.RepeatPenalty, llama.DefaultOptions.Penalty)),
		llama.SetRepeat(nz(params.RepeatLastN, llama.DefaultOptions.Repeat)),
	}
	if params.MaxTokens > 0 {
		po = append(po, llama.SetTokens(params.MaxTokens))
	}
	return po
}

func nz(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func nzf(v, def float32) float32 {
	if v > 0 {
		return v
	}
	return def
}
