package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"
	_ "time/tzdata" // ?tz= must resolve without system zoneinfo

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	authmw "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type answersRequest struct {
	Answers []quiz.QuestionAnswer `json:"answers"`
}

// decodeAnswers accepts an empty body as "no answers supplied".
func decodeAnswers(r *http.Request) ([]quiz.QuestionAnswer, error) {
	var req answersRequest
	err := json.NewDecoder(r.Body).Decode(&req)
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	return req.Answers, err
}

func StartAttemptHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Start(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, err)
			return
		}
		status := http.StatusCreated
		if res.Resumed {
			status = http.StatusOK
		}
		writeJSON(w, status, res)
	}
}

func OpenAttemptHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok, err := svc.OpenAttempt(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no open attempt"})
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

// AutosaveHandler replaces the attempt's answers. Saving into a submitted
// attempt answers 200 with saved=false. A body without an answers array is
// a 400; send "answers": [] to clear.
func AutosaveHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, err := decodeAnswers(r)
		if err != nil {
			badRequest(w, "bad json")
			return
		}
		res, err := svc.Autosave(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()), answers)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func SubmitAttemptHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		answers, err := decodeAnswers(r)
		if err != nil {
			badRequest(w, "bad json")
			return
		}
		res, err := svc.Submit(r.Context(), chi.URLParam(r, "attemptID"), authmw.SubjectFromContext(r.Context()), answers)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GetAttemptHandler serves owners; roles with attempt:view-all may read any.
func GetAttemptHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "attemptID")
		var (
			a   quiz.Attempt
			err error
		)
		if rbac.Can(r, rbac.PermAttemptViewAll) {
			a, err = svc.GetAnyAttempt(r.Context(), id)
		} else {
			a, err = svc.GetAttempt(r.Context(), id, authmw.SubjectFromContext(r.Context()))
		}
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func BestAttemptHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		a, ok, err := svc.BestAttempt(r.Context(), authmw.SubjectFromContext(r.Context()), chi.URLParam(r, "quizID"))
		if err != nil {
			writeError(w, log, err)
			return
		}
		if !ok {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "no submitted attempts"})
			return
		}
		writeJSON(w, http.StatusOK, a)
	}
}

func RetryStatusHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := svc.RetryStatus(r.Context(), chi.URLParam(r, "quizID"), authmw.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// StatsHandler reports the caller's results; ?tz=Area/City overrides the
// reporting timezone.
func StatsHandler(svc *quiz.Service, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var loc *time.Location
		if tz := r.URL.Query().Get("tz"); tz != "" {
			l, err := time.LoadLocation(tz)
			if err != nil {
				badRequest(w, "unknown timezone "+tz)
				return
			}
			loc = l
		}
		st, err := svc.Stats(r.Context(), authmw.SubjectFromContext(r.Context()), loc)
		if err != nil {
			writeError(w, log, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}
