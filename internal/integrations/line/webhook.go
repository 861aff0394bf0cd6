package line

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/line/line-bot-sdk-go/v8/linebot/webhook"

	"line-assistant/internal/domain"
)

// SignatureHeader is the request header carrying the base64 HMAC-SHA256 of the body.
const SignatureHeader = "X-Line-Signature"

// ErrInvalidSignature is returned when the signature header does not match the body.
var ErrInvalidSignature = errors.New("line: invalid signature")

// Verifier authenticates webhook callbacks with the channel secret and turns
// them into domain events. Signature checking and payload decoding are done by
// the LINE SDK.
type Verifier struct {
	channelSecret string
}

func NewVerifier(channelSecret string) *Verifier {
	return &Verifier{channelSecret: channelSecret}
}

// Parse validates signature against the exact body bytes and returns the events
// carried by the callback, in delivery order.
func (v *Verifier) Parse(body []byte, signature string) ([]domain.InboundEvent, error) {
	if signature == "" || !webhook.ValidateSignature(v.channelSecret, signature, body) {
		return nil, ErrInvalidSignature
	}

	var cb webhook.CallbackRequest
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("line: decode callback: %w", err)
	}

	out := make([]domain.InboundEvent, 0, len(cb.Events))
	for _, ev := range cb.Events {
		out = append(out, toInboundEvent(ev))
	}
	return out, nil
}

func toInboundEvent(ev webhook.EventInterface) domain.InboundEvent {
	e, ok := ev.(webhook.MessageEvent)
	if !ok {
		return domain.InboundEvent{Type: domain.EventUnsupported}
	}

	in := domain.InboundEvent{
		Type:           domain.EventUnsupported,
		WebhookEventID: e.WebhookEventId,
		SourceID:       sourceID(e.Source),
		ReplyToken:     e.ReplyToken,
	}
	if e.DeliveryContext != nil {
		in.Redelivery = e.DeliveryContext.IsRedelivery
	}
	if msg, ok := e.Message.(webhook.TextMessageContent); ok {
		in.Type = domain.EventTextMessage
		in.Text = msg.Text
	}
	return in
}

func sourceID(src webhook.SourceInterface) string {
	switch s := src.(type) {
	case webhook.UserSource:
		return s.UserId
	case webhook.GroupSource:
		return s.GroupId
	case webhook.RoomSource:
		return s.RoomId
	default:
		return ""
	}
}
