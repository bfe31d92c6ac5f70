// Package llm defines the chat completion boundary used by the
// conversation orchestrator. Providers receive the full ordered message
// list and return a single assistant reply as text.
package llm

import "context"

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type Client interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}
