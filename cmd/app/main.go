// File: cmd/app/main.go
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/config"
	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/domain/ports/adapter"
	"classifieds-marketplace/internal/infra/clock"
	pg "classifieds-marketplace/internal/infra/db/postgres"
	"classifieds-marketplace/internal/infra/events"
	"classifieds-marketplace/internal/infra/i18n"
	"classifieds-marketplace/internal/infra/logging"
	"classifieds-marketplace/internal/infra/metrics"
	"classifieds-marketplace/internal/infra/payment"
	red "classifieds-marketplace/internal/infra/redis"
	"classifieds-marketplace/internal/infra/sched"
	"classifieds-marketplace/internal/infra/telegram"
	"classifieds-marketplace/internal/infra/web"
	"classifieds-marketplace/internal/infra/worker"
	"classifieds-marketplace/internal/usecase"
)

// set with -ldflags "-X main.version=... -X main.commit=..."
var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (console logs, unredacted phones)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		l := zerolog.New(os.Stderr).With().Timestamp().Logger()
		l.Fatal().Err(err).Msg("config")
	}
	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("[DEV MODE] Enabled")
	}

	metrics.MustRegister()
	metrics.SetBuildInfo(version, commit)

	// ---- Postgres ----
	pool, err := pg.Connect(ctx, cfg.Database.URL)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres")
	}
	defer pool.Close()
	go pg.ReportPoolStats(ctx, pool, 15*time.Second, logger)

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis")
	}
	defer redisClient.Close()
	rateLimiter := red.NewRateLimiter(redisClient)
	locker := red.NewLocker(redisClient)
	linkCodes := red.NewLinkCodeStore(redisClient)

	// ---- Events ----
	var publisher adapter.EventPublisher
	if cfg.RabbitMQ.URL != "" {
		rp, err := events.NewRabbitPublisher(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("rabbitmq")
		}
		defer rp.Close()
		publisher = rp
	} else {
		logger.Info().Msg("rabbitmq.url not set; domain events go to the log")
		publisher = events.NewLogPublisher(logger)
	}

	// ---- Repositories ----
	tm := pg.NewTxManager(pool)
	accountRepo := pg.NewAccountRepo(pool)
	listingRepo := pg.NewListingRepoCacheDecorator(pg.NewListingRepo(pool), redisClient, cfg.Redis.TTL, logger)
	paymentRepo := pg.NewPaymentRepo(pool)
	callbackRepo := pg.NewPaymentCallbackRepo(pool)
	notifLogRepo := pg.NewNotificationLogRepo(pool)
	engagementRepo := pg.NewEngagementRepo(pool)
	reportRepo := pg.NewReportRepo(pool)

	// ---- Domain config ----
	catalog, err := model.NewPlanCatalog(cfg.Listing.Currency, cfg.Plans)
	if err != nil {
		logger.Fatal().Err(err).Msg("plan catalog")
	}
	bands := cfg.Bands()
	clk := clock.System{}

	// ---- Use cases ----
	quotaUC := usecase.NewQuotaUseCase(accountRepo, cfg.Listing.FreeListingCap)
	accountUC := usecase.NewAccountUseCase(accountRepo, quotaUC, clk, logger)
	listingUC := usecase.NewListingUseCase(listingRepo, accountRepo, quotaUC, catalog, bands, tm, clk, publisher, logger)
	queryUC := usecase.NewQueryUseCase(listingRepo, bands, clk, logger)
	planUC := usecase.NewPlanUseCase(catalog)
	statsUC := usecase.NewStatsUseCase(listingRepo, paymentRepo, engagementRepo, reportRepo, cfg.Listing.Currency, clk, logger)
	engagementUC := usecase.NewEngagementUseCase(listingRepo, accountRepo, engagementRepo, reportRepo, bands, tm, clk, publisher, logger)
	linkUC := usecase.NewTelegramLinkUseCase(linkCodes, accountUC, clk, cfg.Telegram.BotName, logger)

	// ---- Telegram ----
	var bot adapter.TelegramBotAdapter
	if cfg.Telegram.Token != "" {
		tr, err := i18n.NewTranslator(i18n.LocalesFS, cfg.Telegram.Language)
		if err != nil {
			logger.Fatal().Err(err).Msg("i18n")
		}
		realBot, err := telegram.NewRealTelegramBotAdapter(cfg.Telegram.Token, linkUC, tr, cfg.Telegram.Workers, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram")
		}
		go func() {
			if err := realBot.StartPolling(ctx); err != nil {
				logger.Error().Err(err).Msg("telegram polling stopped")
			}
		}()
		bot = realBot
	} else {
		logger.Info().Msg("telegram.token not set; notifications are logged only")
		bot = telegram.NewNoopBotAdapter(logger)
	}
	notifUC := usecase.NewNotificationUseCase(listingRepo, accountRepo, notifLogRepo, bot, clk, cfg.Scheduler.ReminderWindow, cfg.Telegram.RenewalURL, logger)

	// ---- Payments ----
	var gateway adapter.PushPaymentGateway
	switch cfg.Payment.Provider {
	case "mpesa":
		gateway = payment.NewMpesaGateway(cfg.Payment.Mpesa, &http.Client{Timeout: cfg.Payment.DispatchTimeout}, logger, cfg.Runtime.Dev)
	default:
		logger.Warn().Msg("payment.provider=noop; pushes settle on the next sweep")
		gateway = payment.NewNoopGateway()
	}
	paymentUC := usecase.NewPaymentUseCase(usecase.PaymentDeps{
		Payments:  paymentRepo,
		Callbacks: callbackRepo,
		Listings:  listingRepo,
		Accounts:  accountRepo,
		Lifecycle: listingUC,
		Catalog:   catalog,
		Gateway:   gateway,
		Locker:    locker,
		TM:        tm,
		Clock:     clk,
		Events:    publisher,
		Notifier:  notifUC,
	}, usecase.PaymentTimeouts{
		Dispatch:     cfg.Payment.DispatchTimeout,
		Confirmation: cfg.Payment.ConfirmationTimeout,
		PollAfter:    cfg.Payment.PollAfter,
	}, logger, cfg.Runtime.Dev)

	// ---- Scheduler ----
	workers := worker.NewPool(cfg.Scheduler.Workers, logger)
	workers.Start(ctx)
	reconcileUC := usecase.NewReconcileUseCase(listingRepo, bands, clk, workers, publisher, cfg.Scheduler.BatchSize, cfg.Scheduler.Window, logger)

	scheduler := sched.NewScheduler(logger)
	jobs := []struct {
		spec string
		job  sched.Job
	}{
		{cfg.Scheduler.ExpiryCron, sched.NewExpiryWorker(reconcileUC, 0, logger)},
		{cfg.Scheduler.ReminderCron, sched.NewNotificationWorker(notifUC, 0, logger)},
		{cfg.Scheduler.PaymentCron, sched.NewPaymentReconciler(paymentUC, 0, logger)},
	}
	for _, j := range jobs {
		if err := scheduler.Add(j.spec, j.job); err != nil {
			logger.Fatal().Err(err).Msg("scheduler")
		}
	}
	scheduler.Start(ctx)

	// ---- HTTP ----
	var links usecase.TelegramLinkUseCase
	if cfg.Telegram.Token != "" {
		links = linkUC
	}
	srv := web.NewServer(web.Deps{
		Listings:   listingUC,
		Query:      queryUC,
		Accounts:   accountUC,
		Payments:   paymentUC,
		Reconcile:  reconcileUC,
		Stats:      statsUC,
		Engagement: engagementUC,
		Links:      links,
		Plans:      planUC,
		Auth:       web.NewAuthManager(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.AdminRole),
		Limiter:    rateLimiter,
		RateKey:    red.AccountRouteKey,
	}, web.Options{
		Port:           cfg.HTTP.Port,
		RequestTimeout: cfg.HTTP.RequestTimeout,
		AllowedOrigins: cfg.HTTP.AllowedOrigins,
		RateLimit:      cfg.HTTP.RateLimit,
		CallbackSecret: cfg.Payment.Mpesa.CallbackSecret,
	}, logger)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error().Err(err).Msg("http server error")
			cancel()
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigc:
		logger.Info().Msg("shutdown requested")
	case <-ctx.Done():
	}

	shutdownCtx, stop := context.WithTimeout(context.Background(), 15*time.Second)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn().Err(err).Msg("http shutdown")
	}
	scheduler.Stop()
	cancel()
	workers.Stop()
	logger.Info().Msg("bye")
}
