package handler

import (
	"context"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/awslabs/aws-lambda-go-api-proxy/httpadapter"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// WebhookPath is the only route served.
const WebhookPath = "/webhook"

// NewRouter mounts h on POST /webhook. Other methods get 405 and other paths 404.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Method(http.MethodPost, WebhookPath, h)
	return r
}

// LambdaFunc serves router from API Gateway HTTP API or Lambda function URL
// events (payload format 2.0).
type LambdaFunc func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error)

func NewLambda(router http.Handler) LambdaFunc {
	return httpadapter.NewV2(router).ProxyWithContext
}
