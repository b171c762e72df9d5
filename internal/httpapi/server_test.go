package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatd/internal/engine"
	"chatd/pkg/types"
)

// fakeService scripts engine behavior per request.
type fakeService struct {
	mu       sync.Mutex
	lastReq  *engine.GenerationRequest
	submitFn func(req *engine.GenerationRequest) error
	status   types.StatusResponse
	ready    bool
}

func (f *fakeService) Submit(req *engine.GenerationRequest) error {
	f.mu.Lock()
	f.lastReq = req
	f.mu.Unlock()
	if f.submitFn != nil {
		return f.submitFn(req)
	}
	close(req.Stream)
	return nil
}

func (f *fakeService) Status() types.StatusResponse { return f.status }
func (f *fakeService) Ready() bool                  { return f.ready }

func (f *fakeService) captured() *engine.GenerationRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lastReq
}

// fakeHist serves canned history.
type fakeHist struct {
	entries []types.ChatEntry
	err     error
}

func (f *fakeHist) SaveEntry(ctx context.Context, conversationID string, typ types.ChatEntryType, content string) error {
	return nil
}

func (f *fakeHist) History(ctx context.Context, conversationID string) ([]types.ChatEntry, error) {
	return f.entries, f.err
}

// streamTokens makes Submit emit the given tokens and close the stream.
func streamTokens(tokens ...string) func(req *engine.GenerationRequest) error {
	return func(req *engine.GenerationRequest) error {
		go func() {
			for _, tok := range tokens {
				req.Stream <- engine.StreamResult{Token: tok}
			}
			close(req.Stream)
		}()
		return nil
	}
}

func postChat(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestHealthz(t *testing.T) {
	h := NewMux(&fakeService{}, &fakeHist{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("got %d %q", w.Code, w.Body.String())
	}
}

func TestReadyz(t *testing.T) {
	svc := &fakeService{ready: true}
	h := NewMux(svc, &fakeHist{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready service: got %d", w.Code)
	}

	svc.ready = false
	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("unready service: got %d", w.Code)
	}
}

func TestStatus(t *testing.T) {
	svc := &fakeService{status: types.StatusResponse{MaxSessions: 4, ModelPath: "/m/x.gguf", QueuedRequests: 2}}
	h := NewMux(svc, &fakeHist{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/status", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	var got types.StatusResponse
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.MaxSessions != 4 || got.ModelPath != "/m/x.gguf" || got.QueuedRequests != 2 {
		t.Fatalf("unexpected status: %+v", got)
	}
}

func TestChat_StreamsNDJSONLines(t *testing.T) {
	svc := &fakeService{submitFn: streamTokens("Hel", "lo", "!")}
	h := NewMux(svc, &fakeHist{})

	w := postChat(t, h, `{"prompt":"say hello"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("got content type %q", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("got %d lines: %q", len(lines), w.Body.String())
	}
	var out strings.Builder
	for _, line := range lines {
		var msg types.TokenMessage
		if err := json.Unmarshal([]byte(line), &msg); err != nil {
			t.Fatalf("bad line %q: %v", line, err)
		}
		out.WriteString(msg.Token)
	}
	if out.String() != "Hello!" {
		t.Fatalf("got %q, want %q", out.String(), "Hello!")
	}

	gr := svc.captured()
	if gr.Prompt != "say hello" || gr.Chat != nil {
		t.Fatalf("unexpected request: %+v", gr)
	}
}

func TestChat_EmptyStreamStillNDJSON(t *testing.T) {
	// End of text before any token: 200 with the stream content type and an
	// empty body.
	h := NewMux(&fakeService{}, &fakeHist{})
	w := postChat(t, h, `{"prompt":"x"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("got content type %q", ct)
	}
	if w.Body.Len() != 0 {
		t.Fatalf("unexpected body: %q", w.Body.String())
	}
}

func TestChat_RequiresJSONContentType(t *testing.T) {
	h := NewMux(&fakeService{}, &fakeHist{})
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"prompt":"x"}`))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if w.Code != http.StatusUnsupportedMediaType {
		t.Fatalf("got %d", w.Code)
	}
}

func TestChat_RejectsBadBody(t *testing.T) {
	h := NewMux(&fakeService{}, &fakeHist{})
	for _, body := range []string{`{`, `{"prompt":""}`, `{"prompt":"  "}`} {
		if w := postChat(t, h, body); w.Code != http.StatusBadRequest {
			t.Fatalf("body %q: got %d", body, w.Code)
		}
	}
}

func TestChat_RejectsInvalidConversationID(t *testing.T) {
	h := NewMux(&fakeService{}, &fakeHist{})
	w := postChat(t, h, `{"prompt":"x","conversation_id":"not-a-uuid"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("got %d", w.Code)
	}
}

func TestChat_AttachesConversationHistory(t *testing.T) {
	hist := &fakeHist{entries: []types.ChatEntry{
		{Type: types.ChatEntryUser, Content: "Hi"},
		{Type: types.ChatEntryAssistant, Content: "Hello"},
	}}
	svc := &fakeService{submitFn: streamTokens("ok")}
	h := NewMux(svc, hist)

	id := uuid.NewString()
	w := postChat(t, h, `{"prompt":"next","conversation_id":"`+id+`"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	gr := svc.captured()
	if gr.Chat == nil || gr.Chat.ConversationID != id {
		t.Fatalf("conversation context missing: %+v", gr)
	}
	if len(gr.Chat.History) != 2 || gr.Chat.History[0].Content != "Hi" {
		t.Fatalf("history not attached: %+v", gr.Chat)
	}
}

func TestChat_ErrorBeforeFirstToken(t *testing.T) {
	svc := &fakeService{submitFn: func(req *engine.GenerationRequest) error {
		go func() {
			req.Stream <- engine.StreamResult{Err: errTest("model exploded")}
			close(req.Stream)
		}()
		return nil
	}}
	h := NewMux(svc, &fakeHist{})
	w := postChat(t, h, `{"prompt":"x"}`)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("got content type %q", ct)
	}
	var resp types.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !strings.Contains(resp.Error, "model exploded") {
		t.Fatalf("unexpected error payload: %+v", resp)
	}
}

func TestChat_EngineClosedReturns503(t *testing.T) {
	// A real engine produces the closed error the handler switches on.
	eng := engine.New(nil, nil, engine.Config{}, zerolog.Nop())
	eng.Close()
	svc := &fakeService{submitFn: func(req *engine.GenerationRequest) error {
		return eng.Submit(req)
	}}
	h := NewMux(svc, &fakeHist{})
	w := postChat(t, h, `{"prompt":"x"}`)
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
}

func TestNewConversation(t *testing.T) {
	h := NewMux(&fakeService{}, &fakeHist{})
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/conversations", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d", w.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, err := uuid.Parse(resp["conversation_id"]); err != nil {
		t.Fatalf("bad conversation id %q: %v", resp["conversation_id"], err)
	}
}

func TestHistoryEndpoint(t *testing.T) {
	hist := &fakeHist{entries: []types.ChatEntry{{Type: types.ChatEntryUser, Content: "Hi"}}}
	h := NewMux(&fakeService{}, hist)

	id := uuid.NewString()
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/"+id+"/history", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("got %d: %s", w.Code, w.Body.String())
	}
	var resp types.HistoryResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ConversationID != id || len(resp.Entries) != 1 || resp.Entries[0].Content != "Hi" {
		t.Fatalf("unexpected response: %+v", resp)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/chat/nope/history", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("invalid id: got %d", w.Code)
	}
}

type errTest string

func (e errTest) Error() string { return string(e) }
