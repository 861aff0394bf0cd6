package usecase

import (
	"errors"
	"strings"

	"line-assistant/internal/domain"
)

const (
	systemInstruction = "You are a helpful assistant."
	apologyPrefix     = "Sorry, I couldn't process your request: "
)

// buildPromptMessages returns the fixed system turn followed by the user's
// text as the only user turn. No history is carried between requests.
func buildPromptMessages(userText string) []domain.ChatMessage {
	return []domain.ChatMessage{
		{Role: domain.RoleSystem, Content: systemInstruction},
		{Role: domain.RoleUser, Content: userText},
	}
}

// renderCompletionFailure turns a completion failure into the chat reply.
// The provider's error text is shown to the user verbatim when available.
func renderCompletionFailure(err error) string {
	var ucErr *Error
	if !errors.As(err, &ucErr) {
		ucErr = newError(ErrorUpstream, "unclassified", err)
	}
	if detail := ucErr.Detail(); detail != "" {
		return apologyPrefix + detail
	}
	return strings.TrimSpace(apologyPrefix)
}
