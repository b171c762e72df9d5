package engine

import (
	"strings"

	"chatd/pkg/types"
)

// Role markers used when rendering conversation history into a prompt.
const (
	userPrefix      = "User: "
	assistantPrefix = "Assistant: "
)

// Template slots the system prompt must provide.
const (
	historySlot = "{{HISTORY}}"
	promptSlot  = "{{PROMPT}}"
)

const defaultSystemPrompt = `You are a helpful virtual assistant.
You fulfill the user's request in the most effective way and your answer is never empty.
Below is a dialog between a user and you.
Write a response to the request in the '### Request:' section that appropriately completes the request.

### Conversation:
{{HISTORY}}

### Request:
{{PROMPT}}

### Response:`

// buildPrompt constructs the text fed to the model. Requests without
// conversation context pass their prompt through verbatim; otherwise prior
// turns are rendered in order with role markers and substituted, together
// with the current turn, into the system template.
func buildPrompt(req *GenerationRequest) string {
	if req.Chat == nil {
		return req.Prompt
	}
	var history strings.Builder
	for _, entry := range req.Chat.History {
		prefix := userPrefix
		if entry.Type == types.ChatEntryAssistant {
			prefix = assistantPrefix
		}
		history.WriteString(prefix)
		history.WriteString(entry.Content)
		history.WriteByte('\n')
	}
	tmpl := req.SystemPrompt
	if tmpl == "" {
		tmpl = defaultSystemPrompt
	}
	out := strings.ReplaceAll(tmpl, historySlot, history.String())
	return strings.ReplaceAll(out, promptSlot, userPrefix+req.Prompt)
}
