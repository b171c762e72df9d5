package types

import "time"

// ChatEntryType distinguishes who produced a chat entry.
type ChatEntryType string

const (
	ChatEntryUser      ChatEntryType = "user"
	ChatEntryAssistant ChatEntryType = "assistant"
)

// ChatEntry is one stored turn of a conversation.
type ChatEntry struct {
	// Conversation this entry belongs to.
	// example: 6f1c9f4e-0b2a-4f4e-9b6d-3f0a2b1c9d8e
	ConversationID string `json:"conversation_id" example:"6f1c9f4e-0b2a-4f4e-9b6d-3f0a2b1c9d8e"`
	// Who produced the entry: "user" or "assistant".
	// example: user
	Type ChatEntryType `json:"type" example:"user"`
	// Entry text.
	// example: What is the capital of France?
	Content string `json:"content" example:"What is the capital of France?"`
	// Creation time.
	CreatedAt time.Time `json:"created_at"`
}

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	// Required prompt text for the current turn.
	// example: Write a haiku about the ocean.
	Prompt string `json:"prompt" example:"Write a haiku about the ocean."`
	// Optional conversation to continue. When set, stored history is rendered
	// into the prompt and the finished exchange is persisted.
	// example: 6f1c9f4e-0b2a-4f4e-9b6d-3f0a2b1c9d8e
	ConversationID string `json:"conversation_id,omitempty" example:"6f1c9f4e-0b2a-4f4e-9b6d-3f0a2b1c9d8e"`
	// Optional system prompt template overriding the default. Must contain the
	// {{HISTORY}} and {{PROMPT}} slots.
	SystemPrompt string `json:"system_prompt,omitempty"`
	// Maximum number of new chunks to generate. 0 uses the server default.
	// example: 128
	NumPredict int `json:"num_predict,omitempty" example:"128"`
	// Batch size override.
	// example: 8
	NumBatch int `json:"n_batch,omitempty" example:"8"`
	// Top-K sampling override.
	// example: 40
	TopK int `json:"top_k,omitempty" example:"40"`
	// Nucleus sampling probability override.
	// example: 0.9
	TopP float32 `json:"top_p,omitempty" example:"0.9"`
	// Repeat penalty override.
	// example: 1.1
	RepeatPenalty float32 `json:"repeat_penalty,omitempty" example:"1.1"`
	// Sampling temperature override.
	// example: 0.7
	Temperature float32 `json:"temperature,omitempty" example:"0.7"`
	// Replay previously generated tokens through the sampler.
	PlayBackTokens bool `json:"play_back_tokens,omitempty"`
}

// TokenMessage is one NDJSON line of a streamed chat response.
type TokenMessage struct {
	// Next chunk of generated text.
	// example: Hel
	Token string `json:"token" example:"Hel"`
}

// HistoryResponse wraps the stored entries of one conversation.
type HistoryResponse struct {
	// Conversation identifier.
	ConversationID string `json:"conversation_id"`
	// Entries in insertion order.
	Entries []ChatEntry `json:"entries"`
}
