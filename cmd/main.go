package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"line-assistant/handler"
	"line-assistant/internal/config"
	"line-assistant/internal/integrations/line"
	"line-assistant/internal/integrations/openai"
	"line-assistant/internal/integrations/paramstore"
	"line-assistant/internal/observability"
	"line-assistant/internal/repository"
	"line-assistant/internal/usecase"
)

func main() {
	ctx := context.Background()

	// ---- Configuration (read only here) ----
	cfg, err := config.Load(".env")
	if err != nil {
		slog.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}
	slog.SetDefault(observability.NewLogger(cfg.LogLevel))

	// ---- AWS SDK config (only when an AWS-backed feature is enabled) ----
	var ledger usecase.EventLedger
	if cfg.ParamPrefix != "" || cfg.EventTable != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			slog.Error("failed to load AWS config", "err", err)
			os.Exit(1)
		}

		if cfg.ParamPrefix != "" {
			ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
			if err != nil {
				slog.Error("failed to create SSM client", "err", err)
				os.Exit(1)
			}
			if err := cfg.ResolveCredentials(ctx, ssmClient); err != nil {
				slog.Error("failed to resolve credentials", "err", err, "prefix", cfg.ParamPrefix)
				os.Exit(1)
			}
		}

		if cfg.EventTable != "" {
			eventLedger, err := repository.NewEventLedger(awsdynamodb.NewFromConfig(awsCfg), cfg.EventTable)
			if err != nil {
				slog.Error("failed to create event ledger", "err", err)
				os.Exit(1)
			}
			ledger = eventLedger
		}
	}

	if missing := cfg.MissingCredentials(); len(missing) > 0 {
		slog.Warn("credentials are not configured; related calls will fail", "missing", missing)
	}

	// ---- Clients ----
	openaiClient, err := openai.NewClient(cfg.OpenAIAPIKey,
		openai.WithBaseURL(cfg.OpenAIBaseURL),
		openai.WithTimeout(cfg.OpenAITimeout),
	)
	if err != nil {
		slog.Error("failed to create OpenAI client", "err", err)
		os.Exit(1)
	}

	replier, err := line.NewReplier(cfg.LineChannelAccessToken)
	if err != nil {
		slog.Error("failed to create LINE replier", "err", err)
		os.Exit(1)
	}

	// ---- Handler ----
	messages, err := usecase.NewMessageService(openaiClient, replier, usecase.ResponderConfig{
		Model:           cfg.OpenAIModel,
		MaxTokens:       cfg.OpenAIMaxTokens,
		ImageURL:        cfg.ImageURL,
		PreviewImageURL: cfg.PreviewImageURL,
		SummaryText:     cfg.SummaryText,
	})
	if err != nil {
		slog.Error("failed to create message service", "err", err)
		os.Exit(1)
	}

	dispatcher, err := usecase.NewDispatcher(messages, ledger)
	if err != nil {
		slog.Error("failed to create dispatcher", "err", err)
		os.Exit(1)
	}

	h, err := handler.NewHandler(line.NewVerifier(cfg.LineChannelSecret), dispatcher)
	if err != nil {
		slog.Error("failed to create handler", "err", err)
		os.Exit(1)
	}
	router := handler.NewRouter(h)

	if os.Getenv("AWS_LAMBDA_RUNTIME_API") != "" {
		lambda.Start(handler.NewLambda(router))
		return
	}

	if err := serve(router, cfg.Port); err != nil {
		slog.Error("server stopped", "err", err)
		os.Exit(1)
	}
}

// serve runs router on port until SIGINT or SIGTERM, then drains in-flight
// requests.
func serve(router http.Handler, port string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              net.JoinHostPort("", port),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("listening", "addr", srv.Addr, "path", handler.WebhookPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
