package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

type createQuizRequest struct {
	quiz.Quiz
	Questions []quiz.Question `json:"questions"`
}

// CreateQuizHandler authors a quiz together with its questions. Question
// schemas are computed on the way in.
func CreateQuizHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createQuizRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			badRequest(w, "bad json")
			return
		}
		qz, err := svc.AuthorQuiz(r.Context(), req.Quiz, req.Questions)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusCreated, qz)
	}
}

// GetQuizHandler returns the learner view; answer keys never leave the server.
func GetQuizHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := svc.QuizForLearner(r.Context(), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, v)
	}
}
