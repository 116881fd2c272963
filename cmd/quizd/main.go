package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/config"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/metrics"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
	"github.com/mind-engage/mindengage-quiz/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger settings come from config; fall back to a default one
		logger.New(logger.Options{}).Fatal("config", zap.Error(err))
	}
	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile})
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- DB ---
	openCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	dbh, err := db.Open(openCtx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	cancel()
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	defer dbh.Close()

	loc, _ := cfg.Location() // validated by config.Load
	m := metrics.New()
	svc := quiz.NewService(
		quiz.NewSQLStore(dbh, db.Driver(cfg.DBDriver)),
		quiz.WithPassThreshold(cfg.PassThreshold),
		quiz.WithRetryPolicy(quiz.RetryPolicy{Threshold: cfg.RetryThreshold}),
		quiz.WithLocation(loc),
		quiz.WithLogger(log.Named("quiz")),
		quiz.WithRecorder(m),
		quiz.WithEvents(syncx.NewEventRepo(dbh, db.Driver(cfg.DBDriver), cfg.SiteID)),
	)

	// Local login (enabled in offline mode by default; can be enabled online via env)
	var login *auth.LoginOptions
	if cfg.EnableLocalAuth {
		login = &auth.LoginOptions{
			AdminUser:     cfg.AdminUser,
			AdminPassHash: cfg.AdminPassHash,
			DevLogins:     cfg.Mode == config.ModeOffline,
		}
	}
	origins := cfg.CORSOriginsOffline
	if cfg.Mode == config.ModeOnline {
		origins = cfg.CORSOriginsOnline
	}
	limiter := api.NewUserLimiter(cfg.AutosaveRPS, cfg.AutosaveBurst)
	go limiter.Run(ctx)

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(api.Deps{
			Service:  svc,
			Auth:     auth.NewAuthService(cfg.AuthSecret),
			Login:    login,
			Metrics:  m,
			Autosave: limiter,
			Origins:  origins,
			Log:      log.Named("http"),
			Ready:    dbh.PingContext,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("mode", string(cfg.Mode)),
		zap.String("db", cfg.DBDriver),
		zap.Int("pass_threshold", cfg.PassThreshold),
		zap.Int("retry_threshold", cfg.RetryThreshold))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal("server", zap.Error(err))
	}
	log.Info("stopped")
}
