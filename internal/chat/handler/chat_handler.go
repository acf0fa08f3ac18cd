// Package handler exposes the stylist chat over HTTP:
//
//	POST   /v1/chat            {"message": "..."} -> ChatResponse
//	GET    /v1/chat/history    ?limit=N           -> HistoryResponse
//	DELETE /v1/chat/memory                        -> 204
//
// The caller is identified by the auth middleware; handlers read the user id
// through the UserIDFunc they are built with.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/boddenberg/stylist-bfa-go/internal/chat/domain"
	maindomain "github.com/boddenberg/stylist-bfa-go/internal/domain"
)

var tracer = otel.Tracer("chat/handler")

// Chatter is the chat service as seen by the handlers.
type Chatter interface {
	ProcessMessage(ctx context.Context, userID string, req *domain.ChatRequest) (*domain.ChatResponse, error)
	History(ctx context.Context, userID string, limit int) (*domain.HistoryResponse, error)
	ForgetMemory(ctx context.Context, userID string) error
}

// UserIDFunc returns the authenticated user id stored in the request context.
type UserIDFunc func(ctx context.Context) string

// ChatHandler handles POST /v1/chat.
func ChatHandler(chat Chatter, userID UserIDFunc, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/chat")
		defer span.End()

		uid := userID(ctx)
		span.SetAttributes(attribute.String("user.id", uid))

		var req domain.ChatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, `invalid request body: expected {"message": "..."}`)
			return
		}
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}

		resp, err := chat.ProcessMessage(ctx, uid, &req)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// HistoryHandler handles GET /v1/chat/history.
func HistoryHandler(chat Chatter, userID UserIDFunc, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/chat/history")
		defer span.End()

		limit := 0
		if v := r.URL.Query().Get("limit"); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = n
		}

		resp, err := chat.History(ctx, userID(ctx), limit)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

// ForgetMemoryHandler handles DELETE /v1/chat/memory.
func ForgetMemoryHandler(chat Chatter, userID UserIDFunc, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/chat/memory")
		defer span.End()

		if err := chat.ForgetMemory(ctx, userID(ctx)); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// ============================================================
// Helpers
// ============================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// handleServiceError maps domain errors to HTTP status codes.
func handleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	var (
		validation *maindomain.ErrValidation
		notFound   *maindomain.ErrNotFound
		timeout    *maindomain.ErrTimeout
		open       *maindomain.ErrCircuitOpen
		external   *maindomain.ErrExternalService
	)
	switch {
	case errors.As(err, &validation):
		writeError(w, http.StatusBadRequest, validation.Error())
	case errors.As(err, &notFound):
		writeError(w, http.StatusNotFound, notFound.Error())
	case errors.As(err, &timeout):
		logger.Warn("chat timeout", zap.Error(err))
		writeError(w, http.StatusGatewayTimeout, "upstream timeout")
	case errors.As(err, &open):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable: "+open.Service)
	case errors.As(err, &external):
		logger.Error("external service error", zap.String("service", external.Service), zap.Error(external.Err))
		writeError(w, http.StatusBadGateway, "external service unavailable: "+external.Service)
	default:
		logger.Error("unexpected error in chat handler", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}
