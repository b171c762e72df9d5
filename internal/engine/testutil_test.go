package engine

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"chatd/internal/llm"
	"chatd/pkg/types"
)

// fakeSession is a scripted llm.Session. It emits units in order, then the
// configured stepErr or end-of-text. With gate set, units are pulled from the
// channel instead; closing the gate signals end-of-text.
type fakeSession struct {
	units   [][]byte
	gate    chan []byte
	feedErr error
	stepErr error

	mu        sync.Mutex
	fedPrompt string
	fed       bool
	closed    bool
	i         int
}

func (s *fakeSession) FeedPrompt(p llm.InferParams, prompt string) error {
	s.mu.Lock()
	s.fedPrompt = prompt
	s.fed = true
	s.mu.Unlock()
	return s.feedErr
}

func (s *fakeSession) InferNextToken(p llm.InferParams, rng *rand.Rand) ([]byte, error) {
	if s.gate != nil {
		u, ok := <-s.gate
		if !ok {
			return nil, llm.ErrEndOfText
		}
		return u, nil
	}
	if s.i < len(s.units) {
		u := s.units[s.i]
		s.i++
		return u, nil
	}
	if s.stepErr != nil {
		return nil, s.stepErr
	}
	return nil, llm.ErrEndOfText
}

func (s *fakeSession) Close() error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *fakeSession) prompt() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fedPrompt
}

// fakeModel hands out scripted sessions in order.
type fakeModel struct {
	mu       sync.Mutex
	script   []*fakeSession
	started  int
	startErr error
}

func (m *fakeModel) StartSession(p llm.InferParams) (llm.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.startErr != nil {
		return nil, m.startErr
	}
	if m.started >= len(m.script) {
		return nil, fmt.Errorf("no scripted session %d", m.started)
	}
	s := m.script[m.started]
	m.started++
	return s, nil
}

func (m *fakeModel) Path() string { return "/models/fake.gguf" }

func (m *fakeModel) sessionsStarted() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.started
}

type savedEntry struct {
	conversationID string
	typ            types.ChatEntryType
	content        string
}

// fakeStore records entries in memory; failUser makes user writes fail.
type fakeStore struct {
	mu       sync.Mutex
	entries  []savedEntry
	failUser bool
}

func (f *fakeStore) SaveEntry(ctx context.Context, conversationID string, typ types.ChatEntryType, content string) error {
	if f.failUser && typ == types.ChatEntryUser {
		return fmt.Errorf("store down")
	}
	f.mu.Lock()
	f.entries = append(f.entries, savedEntry{conversationID, typ, content})
	f.mu.Unlock()
	return nil
}

func (f *fakeStore) History(ctx context.Context, conversationID string) ([]types.ChatEntry, error) {
	return nil, nil
}

func (f *fakeStore) saved() []savedEntry {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]savedEntry, len(f.entries))
	copy(out, f.entries)
	return out
}

func newTestEngine(model *fakeModel, st *fakeStore, cfg Config) *Engine {
	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Millisecond
	}
	return New(model, st, cfg, zerolog.Nop())
}

// collect drains a stream until it closes, concatenating tokens. Returns the
// first error item seen, if any.
func collect(t *testing.T, ch <-chan StreamResult) (string, error) {
	t.Helper()
	var b strings.Builder
	var streamErr error
	timeout := time.After(5 * time.Second)
	for {
		select {
		case res, ok := <-ch:
			if !ok {
				return b.String(), streamErr
			}
			if res.Err != nil {
				streamErr = res.Err
				continue
			}
			b.WriteString(res.Token)
		case <-timeout:
			t.Fatalf("timed out waiting for stream to close")
		}
	}
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", msg)
}

func units(parts ...string) [][]byte {
	out := make([][]byte, 0, len(parts))
	for _, p := range parts {
		out = append(out, []byte(p))
	}
	return out
}
