package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"intake-platform/internal/auth"
	"intake-platform/internal/config"
	"intake-platform/internal/events"
	"intake-platform/internal/extraction"
	"intake-platform/internal/httpapi"
	"intake-platform/internal/intake"
	"intake-platform/internal/notify"
	"intake-platform/internal/reporting"
	"intake-platform/internal/review"
	"intake-platform/internal/store"
	"intake-platform/internal/telephony"
	"intake-platform/pkg/logger"
	"intake-platform/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	_ "github.com/jackc/pgx/v5/stdlib"
)

func main() {
	// Root context that cancels on shutdown
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Best-effort; real deployments inject env via the process runner.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", "err", err)
		os.Exit(1)
	}

	log := logger.New(cfg.App.Env)
	slog.SetDefault(log)

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	authManager, err := auth.NewManager(cfg.Auth)
	if err != nil {
		log.Error("auth init failed", "err", err)
		os.Exit(1)
	}

	db, err := utils.OpenPostgres(rootCtx, "pgx", cfg.PostgresDSN(), utils.PostgresPoolConfig{})
	if err != nil {
		log.Error("postgres init failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	rdb, err := utils.OpenRedis(rootCtx, utils.RedisConfig{Addr: cfg.RedisAddr()})
	if err != nil {
		log.Error("redis init failed", "err", err)
		os.Exit(1)
	}
	defer rdb.Close()

	calls := store.NewPostgres(db)

	extractor := extraction.NewOpenAIExtractor(cfg.OpenAI.APIKey, cfg.OpenAI.ExtractionModel)
	transcriber := extraction.NewWhisperTranscriber(
		cfg.OpenAI.APIKey,
		cfg.OpenAI.TranscribeModel,
		cfg.Twilio.AccountSID,
		cfg.Twilio.AuthToken,
		nil,
	)
	sender := notify.NewTwilioSender(cfg.Twilio.AccountSID, cfg.Twilio.AuthToken, cfg.Twilio.FromNumber, 0)

	reviews := review.NewService(review.NewRedisKV(rdb), cfg.Intake.ReviewBaseURL, cfg.Intake.ReviewLinkTTL)
	eventLog := events.NewService(events.NewPostgresRepo(db), log)
	reports := reporting.NewService(calls)

	handoff := &intake.HandoffPolicy{
		PrimaryContact: cfg.Intake.OperatorNumber,
		Greeting:       "Please hold while I connect you to a team member.",
	}

	machine := intake.NewMachine(calls, extractor, sender, handoff, intake.MachineConfig{
		CollaboratorTimeout: cfg.Intake.CollaboratorTimeout,
		GatherTimeout:       cfg.Intake.GatherTimeout,
		RecordMaxDuration:   cfg.Intake.RecordMaxDuration,
		BusinessName:        cfg.Intake.BusinessName,
	}, log).
		WithReviewLinker(reviews).
		WithEventSink(eventLog)

	voice := &telephony.VoiceHandlers{
		Machine: machine,
		Endpoints: telephony.Endpoints{
			RecordingAction: "/webhooks/twilio/recording",
			DigitsAction:    "/webhooks/twilio/digits",
		},
		Transcriber: transcriber,
		DedupeClaim: func(ctx context.Context, key string) bool {
			ok, err := utils.ClaimOnce(ctx, rdb, key, 24*time.Hour)
			if err != nil {
				// Redis trouble must not drop webhooks; let the machine's
				// status guard absorb any duplicate.
				return true
			}
			return ok
		},
	}

	api := httpapi.Handlers{
		Auth:    authManager,
		Calls:   calls,
		Events:  eventLog,
		Reports: reports,
		Reviews: reviews,
	}

	// Gin router
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.Middleware(log))

	registerRoutes(r, auth.RequireAccessToken(authManager), voice, api, db, rdb)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr(),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		log.Info("api listening", "addr", srv.Addr, "env", cfg.App.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", "err", err)
			stop()
		}
	}()

	<-rootCtx.Done()
	log.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", "err", err)
	}

	_ = logger.ShutdownFlush(shutdownCtx, 2*time.Second)
}
