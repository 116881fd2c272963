package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case quiz.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, quiz.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, quiz.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, quiz.ErrRetryLocked), errors.Is(err, quiz.ErrConflict), errors.Is(err, quiz.ErrAlreadySubmitted):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, log *zap.Logger, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error("request failed", zap.Error(err))
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, map[string]string{"error": msg})
}
