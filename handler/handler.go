package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"line-assistant/internal/domain"
	"line-assistant/internal/integrations/line"
	"line-assistant/internal/observability"
	"line-assistant/internal/usecase"
)

const (
	maxBodyBytes      = 1 << 20
	correlationHeader = "X-Correlation-Id"
	ackBody           = "OK"
)

type Verifier interface {
	Parse(body []byte, signature string) ([]domain.InboundEvent, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, events []domain.InboundEvent) usecase.DispatchResult
}

type errorResponse struct {
	Detail string `json:"detail"`
}

// Handler adapts webhook deliveries to the verifier and the dispatcher.
type Handler struct {
	verifier   Verifier
	dispatcher Dispatcher
}

func NewHandler(v Verifier, d Dispatcher) (*Handler, error) {
	if v == nil {
		return nil, errors.New("handler: verifier must not be nil")
	}
	if d == nil {
		return nil, errors.New("handler: dispatcher must not be nil")
	}
	return &Handler{verifier: v, dispatcher: d}, nil
}

// ServeHTTP handles one webhook delivery. The signature is checked against the
// exact body bytes before any event is looked at.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	corrID := strings.TrimSpace(r.Header.Get(correlationHeader))
	if corrID == "" {
		corrID = uuid.NewString()
	}
	w.Header().Set(correlationHeader, corrID)
	ctx := observability.WithCorrelationID(r.Context(), corrID)
	log := observability.LoggerFromContext(ctx)

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		log.Warn("failed to read webhook body", "err", err)
		writeError(w, http.StatusBadRequest, "Could not read request body")
		return
	}

	events, err := h.verifier.Parse(body, r.Header.Get(line.SignatureHeader))
	if err != nil {
		if errors.Is(err, line.ErrInvalidSignature) {
			log.Warn("rejected webhook with invalid signature", "content_length", len(body))
			writeError(w, http.StatusBadRequest, "Invalid signature")
			return
		}
		log.Error("failed to parse webhook body", "err", err)
		writeError(w, http.StatusInternalServerError, "Could not parse webhook body")
		return
	}

	if len(events) == 0 {
		log.Info("webhook carried no events, treating as verification request")
	}
	res := h.dispatcher.Dispatch(ctx, events)
	log.Info("webhook processed",
		"events", len(events),
		"handled", res.Handled,
		"ignored", res.Ignored,
		"duplicates", res.Duplicates,
		"failed", res.Failed,
	)

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, ackBody)
}

func writeError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorResponse{Detail: detail})
}
