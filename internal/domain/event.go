package domain

// EventType tags an inbound platform event with the handler it maps to.
type EventType string

const (
	EventTextMessage EventType = "text_message"
	EventUnsupported EventType = "unsupported"
)

// InboundEvent is a single event parsed from a webhook callback. It lives for
// the duration of one request.
type InboundEvent struct {
	Type           EventType
	WebhookEventID string
	Redelivery     bool
	SourceID       string
	ReplyToken     string
	Text           string
}
