// Package llm defines the narrow capability interface the engine uses to talk
// to the neural backend. The engine treats the model as opaque: it feeds a
// prompt once, then pulls raw output units one at a time until the backend
// reports end of text. Raw units are byte slices that may split multi-byte
// UTF-8 sequences; reassembly is the engine's job.
//
// Two implementations exist, selected by build tag:
//
//   - llama (tagged 'llama'): in-process go-llama.cpp backend, CGO.
//   - stub (default): fails fast at Load, keeping default builds CGO-free.
package llm

import (
	"errors"
	"math/rand"
)

// ErrEndOfText is returned by InferNextToken when the model has finished
// generating. It is a normal terminal condition, not a failure.
var ErrEndOfText = errors.New("llm: end of text")

// ErrNotBuilt is returned by the stub backend's Load. Binaries built without
// the 'llama' tag cannot run inference.
var ErrNotBuilt = errors.New("llama support not built (missing 'llama' build tag)")

// InferParams carries the sampling parameters for one session. The engine
// merges per-request overrides over configured defaults before a session is
// created; backends receive the merged result on every call.
type InferParams struct {
	Threads        int
	Batch          int
	TopK           int
	TopP           float32
	RepeatPenalty  float32
	RepeatLastN    int
	Temperature    float32
	PlayBackTokens bool
	// MaxTokens is an upper bound hint for backends that need one up front.
	// The engine enforces the per-request chunk limit itself.
	MaxTokens int
}

// Model is a validated model file that can spawn generation sessions. Each
// session is independent; all inference calls on a session are issued by the
// single scheduler goroutine.
type Model interface {
	// StartSession creates a fresh generation session.
	StartSession(params InferParams) (Session, error)
	// Path reports the model file this model was loaded from.
	Path() string
}

// Session generates text incrementally for one request.
type Session interface {
	// FeedPrompt processes the full prompt text once, before any generation.
	FeedPrompt(params InferParams, prompt string) error
	// InferNextToken produces the next raw output unit, or ErrEndOfText when
	// generation is complete. The unit may be a partial UTF-8 sequence.
	InferNextToken(params InferParams, rng *rand.Rand) ([]byte, error)
	// Close releases session resources.
	Close() error
}

// LoadOptions configure model loading.
type LoadOptions struct {
	// CtxTokens is the context window size.
	CtxTokens int
	// Float16 stores the KV memory as float16.
	Float16 bool
	// Progress receives human-readable load progress lines; may be nil.
	Progress func(string)
}

// Load validates the model file at path and returns a Model that sessions are
// started from.
func Load(path string, opts LoadOptions) (Model, error) {
	return load(path, opts)
}
