package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"ragkb/internal/domain"
	"ragkb/internal/loader"
	"ragkb/internal/service"
)

type errorResponse struct {
	Error string `json:"error"`
}

// statusFor maps an operation error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrEmptyMessage):
		return http.StatusBadRequest, "Message is required"
	case errors.Is(err, loader.ErrUnsupportedType):
		return http.StatusBadRequest, "Only text-based files are allowed"
	case domain.IsUnreadableDocument(err):
		return http.StatusBadRequest, "File is unreadable or corrupted"
	case domain.IsEmbeddingProviderError(err):
		return http.StatusBadGateway, "Embedding provider failed"
	case domain.IsDimensionMismatch(err):
		return http.StatusInternalServerError, "Vector dimension mismatch"
	case errors.Is(err, service.ErrNoGenerator):
		return http.StatusServiceUnavailable, "Generation is not configured"
	default:
		return http.StatusInternalServerError, "Internal Server Error"
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := statusFor(err)
	log := s.log.With(zap.String("request_id", requestID(r.Context())), zap.Int("status", status))
	if status >= 500 {
		log.Error("request failed", zap.Error(err))
	} else {
		log.Info("request rejected", zap.Error(err))
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
