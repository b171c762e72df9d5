package engine

import (
	"context"

	"chatd/pkg/types"
)

// StreamResult is one item of a caller's output stream: either the next text
// chunk or a terminal error. The engine closes the stream channel when the
// session reaches a terminal state; there is no explicit end marker.
type StreamResult struct {
	Token string
	Err   error
}

// ConversationContext carries prior dialogue turns for a history-aware prompt.
type ConversationContext struct {
	ConversationID string
	History        []types.ChatEntry
}

// GenerationRequest is one text-generation request. The caller owns it until
// Submit; afterwards it belongs exclusively to the engine and must not be
// mutated. The caller keeps only the receive side of Stream.
type GenerationRequest struct {
	// Prompt is the current user turn.
	Prompt string
	// Chat, when set, makes the prompt history-aware and the finished
	// exchange eligible for persistence.
	Chat *ConversationContext
	// SystemPrompt overrides the default prompt template. Must contain the
	// {{HISTORY}} and {{PROMPT}} slots.
	SystemPrompt string
	// NumPredict caps emitted chunks; 0 uses the engine default.
	NumPredict int

	// Sampling overrides; zero values fall back to the configured defaults.
	NumBatch       int
	TopK           int
	TopP           float32
	RepeatPenalty  float32
	Temperature    float32
	PlayBackTokens bool

	// Stream receives generated chunks. The engine is the only sender and
	// closes it on termination.
	Stream chan<- StreamResult
	// Context reports the receiver gone: when it is done and a chunk cannot
	// be delivered, the session terminates as dropped.
	Context context.Context
}

// completionRecord is the hand-off value for one finished conversational
// exchange. Produced at most once per session, consumed by the saver.
type completionRecord struct {
	conversationID string
	input          string
	output         string
}
