package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"line-assistant/internal/domain"
	"line-assistant/internal/observability"
)

const (
	defaultModel       = "gpt-3.5-turbo"
	defaultMaxTokens   = 150
	defaultImageURL    = "https://example.com/path-to-your-image.jpg"
	defaultSummaryText = "ผลการวิเคราะห์: รายงานสรุปของคุณเสร็จสมบูรณ์แล้ว"
)

type LLMClient interface {
	Chat(ctx context.Context, model string, messages []domain.ChatMessage, maxTokens int) (string, error)
}

type Replier interface {
	Reply(ctx context.Context, replyToken string, reply domain.Reply) error
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ResponderConfig holds the fixed content of the static responders and the
// completion parameters. Zero values take the defaults.
type ResponderConfig struct {
	Model           string
	MaxTokens       int
	ImageURL        string
	PreviewImageURL string
	SummaryText     string
}

func (c ResponderConfig) withDefaults() ResponderConfig {
	if strings.TrimSpace(c.Model) == "" {
		c.Model = defaultModel
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = defaultMaxTokens
	}
	if strings.TrimSpace(c.ImageURL) == "" {
		c.ImageURL = defaultImageURL
	}
	if strings.TrimSpace(c.PreviewImageURL) == "" {
		c.PreviewImageURL = c.ImageURL
	}
	if c.SummaryText == "" {
		c.SummaryText = defaultSummaryText
	}
	return c
}

// MessageService answers text messages: it routes the text, builds the reply
// of the selected responder and sends it with the event's reply token.
type MessageService struct {
	llm     LLMClient
	replier Replier
	cfg     ResponderConfig
}

func NewMessageService(llm LLMClient, replier Replier, cfg ResponderConfig) (*MessageService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if replier == nil {
		return nil, errors.New("usecase: replier must not be nil")
	}
	return &MessageService{llm: llm, replier: replier, cfg: cfg.withDefaults()}, nil
}

// HandleText answers one text message event. The only error it returns is a
// failure of the reply API.
func (s *MessageService) HandleText(ctx context.Context, ev domain.InboundEvent) error {
	intent, reply := s.BuildReply(ctx, ev.Text)
	observability.LoggerFromContext(ctx).Info("replying to message",
		"intent", intent.String(),
		"source", ev.SourceID,
		"reply_kind", string(reply.Kind),
	)
	if err := s.replier.Reply(ctx, ev.ReplyToken, reply); err != nil {
		return fmt.Errorf("usecase: send %s reply: %w", intent, err)
	}
	return nil
}

// BuildReply routes text and produces exactly one reply for it.
func (s *MessageService) BuildReply(ctx context.Context, text string) (Intent, domain.Reply) {
	intent, trimmed := Route(text)
	switch intent {
	case IntentImage:
		return intent, s.imageReply()
	case IntentSummary:
		return intent, s.summaryReply()
	default:
		return intent, s.chatReply(ctx, trimmed)
	}
}

func (s *MessageService) imageReply() domain.Reply {
	return domain.ImageReply(s.cfg.ImageURL, s.cfg.PreviewImageURL)
}

func (s *MessageService) summaryReply() domain.Reply {
	return domain.TextReply(s.cfg.SummaryText)
}

func (s *MessageService) chatReply(ctx context.Context, text string) domain.Reply {
	answer, err := s.Complete(ctx, text)
	if err != nil {
		var ucErr *Error
		if errors.As(err, &ucErr) {
			observability.LoggerFromContext(ctx).Warn("completion failed",
				"code", string(ucErr.Code),
				"reason", ucErr.Reason,
				"err", ucErr.Err,
			)
		}
		return domain.TextReply(renderCompletionFailure(err))
	}
	return domain.TextReply(answer)
}

// Complete asks the completion API about text and returns the trimmed answer.
// Failures are returned as *Error; an answer that is empty after trimming is
// ErrorMalformedResponse rather than an empty reply.
func (s *MessageService) Complete(ctx context.Context, text string) (string, error) {
	raw, err := s.llm.Chat(ctx, s.cfg.Model, buildPromptMessages(text), s.cfg.MaxTokens)
	if err != nil {
		return "", classifyCompletionError(err)
	}
	answer := strings.TrimSpace(raw)
	if answer == "" {
		return "", newError(ErrorMalformedResponse, "openai_empty_completion", errors.New("empty completion"))
	}
	return answer, nil
}

func classifyCompletionError(err error) *Error {
	status, ok := upstreamStatusCode(err)
	switch {
	case ok && status == http.StatusTooManyRequests:
		return newError(ErrorRateLimited, "openai_rate_limited", err)
	case ok && (status == http.StatusUnauthorized || status == http.StatusForbidden):
		return newError(ErrorUnauthorized, "openai_unauthorized", err)
	default:
		return newError(ErrorUpstream, "openai_error", err)
	}
}

func upstreamStatusCode(err error) (int, bool) {
	var statusErr httpStatusCoder
	if !errors.As(err, &statusErr) {
		return 0, false
	}
	return statusErr.HTTPStatusCode(), true
}
