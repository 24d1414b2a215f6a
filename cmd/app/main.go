// File: cmd/app/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"eduplatform/internal/config"
	"eduplatform/internal/domain/ports/adapter"
	tele "eduplatform/internal/infra/adapters/telegram"
	"eduplatform/internal/infra/api"
	pg "eduplatform/internal/infra/db/postgres"
	"eduplatform/internal/infra/logging"
	"eduplatform/internal/infra/metrics"
	red "eduplatform/internal/infra/redis"
	"eduplatform/internal/infra/sched"
	"eduplatform/internal/infra/web"
	"eduplatform/internal/infra/worker"
	"eduplatform/internal/usecase"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] enabled, codes and user ids are logged in clear")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ---- Postgres ----
	pool, err := pg.NewPgxPool(ctx, cfg.Database)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()

	// ---- Repositories ----
	codeRepo := pg.NewPromoCodeRepoCacheDecorator(pg.NewPostgresPromoCodeRepo(pool), redisClient, cfg.Promo.ValidateCacheTTL, logger)
	userRepo := pg.NewPostgresUserRepo(pool)
	redemptionRepo := pg.NewPostgresRedemptionRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Operator notifications ----
	jobs := worker.NewPool(cfg.Notify.Workers, cfg.Notify.QueueSize, 10*time.Second, logger)
	// not the signal context: Stop drains queued notifications on shutdown
	jobs.Start(context.Background())
	defer jobs.Stop()

	var notifier adapter.OperatorNotifier = tele.NewNoopNotifier(logger)
	if cfg.Notify.TelegramToken != "" {
		bot, err := tele.NewBotNotifier(&cfg.Notify, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram notifier")
		}
		notifier = tele.NewAsyncNotifier(jobs, bot)
	}

	// ---- Use cases ----
	promoUC := usecase.NewPromoUseCase(codeRepo, userRepo, redemptionRepo, tm, notifier, logger,
		usecase.WithDevLogging(cfg.Runtime.Dev))
	adminUC := usecase.NewPromoAdminUseCase(codeRepo, userRepo, redemptionRepo, logger)
	statsUC := usecase.NewStatsUseCase(codeRepo, userRepo, logger)

	// ---- HTTP ----
	limiter := red.NewRateLimiter(redisClient, cfg.HTTP.RateLimit, cfg.HTTP.RateWindow)
	public := api.NewServer(promoUC, limiter, map[string]api.Pinger{"postgres": pool, "redis": redisClient}, cfg.HTTP, logger)
	publicSrv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           public.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var adminSrv *http.Server
	if cfg.Admin.APIKey != "" {
		auth := web.NewAuthManager(cfg.Admin.JWTSecret, !cfg.Runtime.Dev, "", cfg.Admin.TokenTTL)
		admin := web.NewServer(adminUC, statsUC, cfg.Admin.APIKey, auth, logger)
		adminSrv = &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Admin.Port),
			Handler:           admin.Router(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	} else {
		logger.Warn().Msg("admin.api_key not set; admin API disabled")
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return serve(publicSrv, "public", logger) })
	if adminSrv != nil {
		g.Go(func() error { return serve(adminSrv, "admin", logger) })
	}
	g.Go(func() error {
		return sched.NewStatsWorker(cfg.Stats.Interval, statsUC, pool, logger).Run(gctx)
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutdown requested")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		err := publicSrv.Shutdown(shutdownCtx)
		if adminSrv != nil {
			err = errors.Join(err, adminSrv.Shutdown(shutdownCtx))
		}
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("exited with error")
		return
	}
	logger.Info().Msg("bye")
}

func serve(srv *http.Server, name string, logger *zerolog.Logger) error {
	logger.Info().Str("server", name).Str("addr", srv.Addr).Msg("http listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}
	return nil
}
