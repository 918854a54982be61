package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	router "github.com/dkeye/Counsel/internal/adapters/http"
	"github.com/dkeye/Counsel/internal/adapters/llm"
	wsignal "github.com/dkeye/Counsel/internal/adapters/signal"
	"github.com/dkeye/Counsel/internal/app"
	"github.com/dkeye/Counsel/internal/app/draft"
	"github.com/dkeye/Counsel/internal/config"
	"github.com/dkeye/Counsel/internal/core"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Initialize zerolog global logger early so config.Load can use it.
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	if lvl, err := zerolog.ParseLevel(cfg.LogLevel); err == nil && lvl != zerolog.NoLevel {
		zerolog.SetGlobalLevel(lvl)
	}

	var gen draft.Generator
	if cfg.AI.APIKey == "" {
		log.Warn().Msg("no AI API key configured; drafts will fail")
		gen = llm.Unconfigured()
	} else {
		gen = llm.NewOpenAIGenerator(llm.OpenAIConfig{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		})
	}
	pipeline := draft.NewPipeline(gen, draft.Config{
		Timeout:            cfg.AI.Timeout,
		Prompts:            cfg.AI.Prompts,
		ReplyErrorMessage:  cfg.AI.ReplyErrorMessage,
		RefineErrorMessage: cfg.AI.RefineErrorMessage,
	})

	var policy app.Policy = app.SimplePolicy{}
	if cfg.Backpressure == "drop" {
		policy = app.LenientPolicy{}
	}
	relay := app.NewRelay(core.NewRoomRegistry(), app.NewRegistry(), pipeline, policy, app.Options{
		LegacyJoin:   cfg.LegacyJoin,
		HistoryLimit: cfg.HistoryLimit,
		RoomIdleTTL:  cfg.RoomIdleTTL,
		QueueSize:    cfg.QueueSize,
	})
	relayDone := make(chan struct{})
	go func() {
		defer close(relayDone)
		relay.Run(ctx)
	}()

	ctl := wsignal.NewSignalWSController(relay,
		wsignal.NewRoomRateLimiter(cfg.RateLimit.Limit, cfg.RateLimit.Interval),
		wsignal.Options{
			ReadLimit:  cfg.ReadLimit,
			PingPeriod: cfg.PingPeriod,
			SendBuffer: cfg.SendBuffer,
		})

	r, err := router.SetupRouter(ctx, cfg, relay, ctl)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to set up router")
	}
	addr := fmt.Sprintf(":%d", cfg.Port)

	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("Counsel server started")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("server error")
			cancel()
		}
	}()

	<-ctx.Done()
	log.Info().Msg("Shutting down")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	<-relayDone
	pipeline.Wait()
	log.Info().Msg("Server exited gracefully")
}
