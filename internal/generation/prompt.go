// Package generation composes prompts for language-model completion.
// Clients live in the ollama and openai subpackages.
package generation

import (
	"strings"
)

const instructions = "You are a helpful assistant. Answer the question using the context below. " +
	"If the context does not contain the answer, say that you do not know."

// BuildPrompt composes the completion prompt from retrieved context, the
// formatted chat history and the user's question. Empty sections are omitted.
func BuildPrompt(context, history, query string) string {
	var sb strings.Builder
	sb.WriteString(instructions)
	if c := strings.TrimSpace(context); c != "" {
		sb.WriteString("\n\nContext:\n")
		sb.WriteString(c)
	}
	if h := strings.TrimSpace(history); h != "" {
		sb.WriteString("\n\nConversation so far:\n")
		sb.WriteString(h)
	}
	sb.WriteString("\n\nQuestion: ")
	sb.WriteString(strings.TrimSpace(query))
	sb.WriteString("\nAnswer:")
	return sb.String()
}
