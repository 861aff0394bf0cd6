package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"line-assistant/internal/domain"
	"line-assistant/internal/integrations/openai"
)

type capturingLLM struct {
	answer    string
	err       error
	model     string
	maxTokens int
	captured  []domain.ChatMessage
	callCount int
}

func (c *capturingLLM) Chat(_ context.Context, model string, msgs []domain.ChatMessage, maxTokens int) (string, error) {
	c.callCount++
	c.model = model
	c.maxTokens = maxTokens
	c.captured = msgs
	return c.answer, c.err
}

type sentReply struct {
	token string
	reply domain.Reply
}

type mockReplier struct {
	sent []sentReply
	err  error
}

func (m *mockReplier) Reply(_ context.Context, token string, reply domain.Reply) error {
	m.sent = append(m.sent, sentReply{token: token, reply: reply})
	return m.err
}

func newTestService(t *testing.T, llm LLMClient, r Replier) *MessageService {
	t.Helper()
	svc, err := NewMessageService(llm, r, ResponderConfig{})
	require.NoError(t, err)
	return svc
}

func textEvent(text string) domain.InboundEvent {
	return domain.InboundEvent{
		Type:           domain.EventTextMessage,
		WebhookEventID: "evt-1",
		SourceID:       "U1",
		ReplyToken:     "reply-token",
		Text:           text,
	}
}

func TestNewMessageService_ValidatesDependencies(t *testing.T) {
	_, err := NewMessageService(nil, &mockReplier{}, ResponderConfig{})
	require.Error(t, err)

	_, err = NewMessageService(&capturingLLM{}, nil, ResponderConfig{})
	require.Error(t, err)
}

func TestResponderConfig_Defaults(t *testing.T) {
	cfg := ResponderConfig{}.withDefaults()
	require.Equal(t, "gpt-3.5-turbo", cfg.Model)
	require.Equal(t, 150, cfg.MaxTokens)
	require.Equal(t, "https://example.com/path-to-your-image.jpg", cfg.ImageURL)
	require.Equal(t, cfg.ImageURL, cfg.PreviewImageURL)
	require.Equal(t, "ผลการวิเคราะห์: รายงานสรุปของคุณเสร็จสมบูรณ์แล้ว", cfg.SummaryText)

	cfg = ResponderConfig{ImageURL: "https://a/full.jpg", PreviewImageURL: "https://a/prev.jpg", Model: "gpt-4o-mini", MaxTokens: 64}.withDefaults()
	require.Equal(t, "https://a/prev.jpg", cfg.PreviewImageURL)
	require.Equal(t, "gpt-4o-mini", cfg.Model)
	require.Equal(t, 64, cfg.MaxTokens)
}

func TestHandleText_Image(t *testing.T) {
	llm := &capturingLLM{}
	r := &mockReplier{}
	svc := newTestService(t, llm, r)

	require.NoError(t, svc.HandleText(context.Background(), textEvent("  ส่งรูป  ")))
	require.Zero(t, llm.callCount)
	require.Len(t, r.sent, 1)
	require.Equal(t, "reply-token", r.sent[0].token)
	require.Equal(t, domain.ImageReply(defaultImageURL, defaultImageURL), r.sent[0].reply)
}

func TestHandleText_Summary(t *testing.T) {
	for _, text := range []string{"summarize", "สรุปผล", " summarize\n"} {
		llm := &capturingLLM{}
		r := &mockReplier{}
		svc := newTestService(t, llm, r)

		require.NoError(t, svc.HandleText(context.Background(), textEvent(text)))
		require.Zero(t, llm.callCount)
		require.Len(t, r.sent, 1)
		require.Equal(t, domain.TextReply(defaultSummaryText), r.sent[0].reply)
	}
}

func TestHandleText_ChatForwardsTrimmedText(t *testing.T) {
	llm := &capturingLLM{answer: "  Hi! How can I help?\n"}
	r := &mockReplier{}
	svc := newTestService(t, llm, r)

	require.NoError(t, svc.HandleText(context.Background(), textEvent("  hello ")))
	require.Equal(t, 1, llm.callCount)
	require.Equal(t, "gpt-3.5-turbo", llm.model)
	require.Equal(t, 150, llm.maxTokens)
	require.Equal(t, []domain.ChatMessage{
		{Role: "system", Content: "You are a helpful assistant."},
		{Role: "user", Content: "hello"},
	}, llm.captured)
	require.Len(t, r.sent, 1)
	require.Equal(t, domain.TextReply("Hi! How can I help?"), r.sent[0].reply)
}

func TestHandleText_NearMissesGoToChat(t *testing.T) {
	for _, text := range []string{"Send picture", "SUMMARIZE", "", "send pictures"} {
		llm := &capturingLLM{answer: "ok"}
		svc := newTestService(t, llm, &mockReplier{})

		require.NoError(t, svc.HandleText(context.Background(), textEvent(text)))
		require.Equal(t, 1, llm.callCount, "text=%q", text)
		require.Len(t, llm.captured, 2)
		require.Equal(t, strings.TrimSpace(text), llm.captured[1].Content)
	}
}

func TestHandleText_CompletionFailureBecomesApology(t *testing.T) {
	llm := &capturingLLM{err: errors.New("mocked network failure")}
	r := &mockReplier{}
	svc := newTestService(t, llm, r)

	require.NoError(t, svc.HandleText(context.Background(), textEvent("hello")))
	require.Len(t, r.sent, 1)
	require.Equal(t, domain.TextReply("Sorry, I couldn't process your request: mocked network failure"), r.sent[0].reply)
}

func TestHandleText_ReplyFailureIsReturned(t *testing.T) {
	r := &mockReplier{err: errors.New("invalid reply token")}
	svc := newTestService(t, &capturingLLM{answer: "ok"}, r)

	err := svc.HandleText(context.Background(), textEvent("send picture"))
	require.Error(t, err)
	require.Contains(t, err.Error(), "image reply")
	require.Contains(t, err.Error(), "invalid reply token")
}

func TestComplete_ClassifiesErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   ErrorCode
		reason string
	}{
		{name: "rate limited", err: &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests, Err: errors.New("slow down")}, code: ErrorRateLimited, reason: "openai_rate_limited"},
		{name: "unauthorized", err: &openai.HTTPStatusError{StatusCode: http.StatusUnauthorized, Err: errors.New("bad key")}, code: ErrorUnauthorized, reason: "openai_unauthorized"},
		{name: "server error", err: &openai.HTTPStatusError{StatusCode: http.StatusInternalServerError, Err: errors.New("oops")}, code: ErrorUpstream, reason: "openai_error"},
		{name: "network", err: errors.New("dial tcp: connection refused"), code: ErrorUpstream, reason: "openai_error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := newTestService(t, &capturingLLM{err: tc.err}, &mockReplier{})
			_, err := svc.Complete(context.Background(), "hello")

			var ucErr *Error
			require.ErrorAs(t, err, &ucErr)
			require.Equal(t, tc.code, ucErr.Code)
			require.Equal(t, tc.reason, ucErr.Reason)
			require.ErrorIs(t, err, tc.err)
		})
	}
}

func TestComplete_EmptyAnswerIsMalformed(t *testing.T) {
	svc := newTestService(t, &capturingLLM{answer: " \n "}, &mockReplier{})
	_, err := svc.Complete(context.Background(), "hello")

	var ucErr *Error
	require.ErrorAs(t, err, &ucErr)
	require.Equal(t, ErrorMalformedResponse, ucErr.Code)
}

func TestRenderCompletionFailure(t *testing.T) {
	upstream := &openai.HTTPStatusError{StatusCode: http.StatusTooManyRequests, Err: errors.New("rate limit reached")}
	msg := renderCompletionFailure(classifyCompletionError(upstream))
	require.True(t, strings.HasPrefix(msg, "Sorry, I couldn't process your request: "))
	require.Equal(t, apologyPrefix+"rate limit reached", msg)

	wrapped := fmt.Errorf("openai: request failed: %w", upstream)
	require.Equal(t, apologyPrefix+"rate limit reached", renderCompletionFailure(classifyCompletionError(wrapped)))

	require.Equal(t, apologyPrefix+"boom", renderCompletionFailure(errors.New("boom")))
}

func TestError_Format(t *testing.T) {
	err := newError(ErrorUpstream, "openai_error", errors.New("boom"))
	require.Equal(t, "usecase: completion UPSTREAM_ERROR (openai_error): boom", err.Error())
	require.Equal(t, "usecase: completion RATE_LIMITED (x)", newError(ErrorRateLimited, "x", nil).Error())
	require.Equal(t, "boom", err.Detail())
	require.Empty(t, newError(ErrorRateLimited, "x", nil).Detail())

	var nilErr *Error
	require.Empty(t, nilErr.Error())
	require.Empty(t, nilErr.Detail())
	require.NoError(t, nilErr.Unwrap())
}
