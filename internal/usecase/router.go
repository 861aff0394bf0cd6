package usecase

import "strings"

// Intent is the responder selected for an inbound text.
type Intent int

const (
	IntentChat Intent = iota
	IntentImage
	IntentSummary
)

func (i Intent) String() string {
	switch i {
	case IntentImage:
		return "image"
	case IntentSummary:
		return "summary"
	default:
		return "chat"
	}
}

type routeRule struct {
	intent  Intent
	phrases []string
}

// routeRules are checked in order; the first exact match wins.
var routeRules = []routeRule{
	{intent: IntentImage, phrases: []string{"ส่งรูป", "send picture"}},
	{intent: IntentSummary, phrases: []string{"สรุปผล", "summarize"}},
}

// Route trims text and matches it case-sensitively against the fixed phrase
// sets. Anything else, including the empty string, goes to chat. The trimmed
// text is returned alongside the intent.
func Route(text string) (Intent, string) {
	trimmed := strings.TrimSpace(text)
	for _, rule := range routeRules {
		for _, phrase := range rule.phrases {
			if trimmed == phrase {
				return rule.intent, trimmed
			}
		}
	}
	return IntentChat, trimmed
}
