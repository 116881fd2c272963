package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/rbac"
)

type Deps struct {
	Service  *quiz.Service
	Auth     *auth.AuthService
	Login    *auth.LoginOptions // nil disables /auth/login
	Metrics  *metrics.Metrics   // nil disables /metrics
	Autosave *UserLimiter       // nil disables autosave throttling
	Origins  []string
	Log      *zap.Logger
	// Ready backs /readyz, typically a DB ping.
	Ready func(ctx context.Context) error
}

func NewRouter(d Deps) chi.Router {
	log := d.Log
	if log == nil {
		log = zap.NewNop()
	}
	svc := d.Service

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Logger, middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}
	if len(d.Origins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   d.Origins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	if d.Login != nil {
		r.Post("/auth/login", auth.LoginHandler(d.Auth, *d.Login))
	}

	// Protected API (JWT → subject/role in context → RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermQuizCreate)).
			Post("/quizzes", CreateQuizHandler(svc, log))
		pr.With(rbac.Require(rbac.PermQuizView)).
			Get("/quizzes/{quizID}", GetQuizHandler(svc, log))

		pr.With(rbac.Require(rbac.PermAttemptCreate)).
			Post("/quizzes/{quizID}/attempts", StartAttemptHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/quizzes/{quizID}/attempts/open", OpenAttemptHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/quizzes/{quizID}/best", BestAttemptHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/quizzes/{quizID}/retry", RetryStatusHandler(svc, log))

		save := pr.With(rbac.Require(rbac.PermAttemptSave))
		if d.Autosave != nil {
			save = save.With(d.Autosave.Middleware)
		}
		save.Put("/attempts/{attemptID}/answers", AutosaveHandler(svc, log))
		pr.With(rbac.Require(rbac.PermAttemptSubmit)).
			Post("/attempts/{attemptID}/submit", SubmitAttemptHandler(svc, log))
		pr.With(rbac.RequireAny(rbac.PermAttemptViewOwn, rbac.PermAttemptViewAll)).
			Get("/attempts/{attemptID}", GetAttemptHandler(svc, log))

		pr.With(rbac.Require(rbac.PermAttemptViewOwn)).
			Get("/stats", StatsHandler(svc, log))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				log.Warn("not ready", zap.Error(err))
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	if d.Metrics != nil {
		r.Handle("/metrics", d.Metrics.Handler())
	}
	return r
}
