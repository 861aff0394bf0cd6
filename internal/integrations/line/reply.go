package line

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/line/line-bot-sdk-go/v8/linebot/messaging_api"

	"line-assistant/internal/domain"
)

// ErrMissingAccessToken is returned by Reply when the replier was built
// without a channel access token.
var ErrMissingAccessToken = errors.New("line: channel access token is not configured")

// Replier sends replies through the Messaging API reply endpoint.
type Replier struct {
	api *messaging_api.MessagingApiAPI
}

type Option func(*options)

type options struct {
	endpoint   string
	httpClient *http.Client
}

// WithEndpoint overrides the Messaging API base URL.
func WithEndpoint(endpoint string) Option {
	return func(o *options) {
		o.endpoint = strings.TrimSpace(endpoint)
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(o *options) {
		o.httpClient = httpClient
	}
}

// NewReplier creates a Replier authenticating with the channel access token.
// An empty token yields a Replier whose every Reply fails with
// ErrMissingAccessToken.
func NewReplier(channelAccessToken string, opts ...Option) (*Replier, error) {
	channelAccessToken = strings.TrimSpace(channelAccessToken)
	if channelAccessToken == "" {
		return &Replier{}, nil
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	var apiOpts []messaging_api.MessagingApiAPIOption
	if o.endpoint != "" {
		apiOpts = append(apiOpts, messaging_api.WithEndpoint(o.endpoint))
	}
	if o.httpClient != nil {
		apiOpts = append(apiOpts, messaging_api.WithHTTPClient(o.httpClient))
	}

	api, err := messaging_api.NewMessagingApiAPI(channelAccessToken, apiOpts...)
	if err != nil {
		return nil, fmt.Errorf("line: create messaging api client: %w", err)
	}
	return &Replier{api: api}, nil
}

// Reply sends a single message correlated by replyToken.
func (r *Replier) Reply(ctx context.Context, replyToken string, reply domain.Reply) error {
	if replyToken == "" {
		return errors.New("line: reply token is required")
	}
	msg, err := toMessage(reply)
	if err != nil {
		return err
	}
	if r.api == nil {
		return ErrMissingAccessToken
	}

	// WithContext mutates its receiver; the shared client is copied per call.
	api := *r.api
	_, err = api.WithContext(ctx).ReplyMessage(&messaging_api.ReplyMessageRequest{
		ReplyToken: replyToken,
		Messages:   []messaging_api.MessageInterface{msg},
	})
	if err != nil {
		return fmt.Errorf("line: reply message: %w", err)
	}
	return nil
}

func toMessage(reply domain.Reply) (messaging_api.MessageInterface, error) {
	switch reply.Kind {
	case domain.ReplyText:
		return messaging_api.TextMessage{Text: reply.Text}, nil
	case domain.ReplyImage:
		return messaging_api.ImageMessage{
			OriginalContentUrl: reply.OriginalURL,
			PreviewImageUrl:    reply.PreviewURL,
		}, nil
	default:
		return nil, fmt.Errorf("line: unsupported reply kind %q", reply.Kind)
	}
}
