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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/xavierca1/hospital-leads/internal/config"
	"github.com/xavierca1/hospital-leads/internal/dashboard"
	"github.com/xavierca1/hospital-leads/internal/infra/database"
	"github.com/xavierca1/hospital-leads/internal/infra/http/handlers"
	httpmw "github.com/xavierca1/hospital-leads/internal/infra/http/middleware"
	"github.com/xavierca1/hospital-leads/internal/infra/mail"
	"github.com/xavierca1/hospital-leads/internal/infra/queue"
	"github.com/xavierca1/hospital-leads/internal/infra/realtime"
	"github.com/xavierca1/hospital-leads/internal/infra/worker"
	"github.com/xavierca1/hospital-leads/internal/logging"
	"github.com/xavierca1/hospital-leads/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tables := database.Tables{Hospitals: cfg.HospitalsTable, ColdEmails: cfg.ColdEmailsTable}
	collation, err := cfg.Language()
	if err != nil {
		return err
	}

	// 1. Change fanout (optional)
	var rabbit *queue.RabbitMQ
	if cfg.AMQPURL != "" {
		rabbit, err = queue.NewRabbitMQ(cfg.AMQPURL)
		if err != nil {
			logger.Warn("rabbitmq unavailable, change fanout disabled", zap.Error(err))
			rabbit = nil
		} else {
			defer rabbit.Close()
		}
	}

	// 2. Store
	var providerOpts []database.ProviderOption
	if rabbit != nil {
		producer := queue.NewProducer(rabbit.Ch)
		providerOpts = append(providerOpts, database.WithWrap(func(s usecase.HospitalStore) usecase.HospitalStore {
			return queue.NewPublishingStore(s, producer, tables.Hospitals, logger)
		}))
	}
	provider := database.NewProvider(database.ProviderConfig{
		Driver:      cfg.StoreDriver,
		DatabaseURL: cfg.DatabaseURL,
		SQLitePath:  cfg.SQLitePath,
		Migrate:     cfg.Migrate,
		Tables:      tables,
	}, logger, providerOpts...)
	defer provider.Dispose()

	// 3. Notifications
	sender := mail.NewEmailSender(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From)
	alerts := mail.NewAlertNotifier(sender, cfg.AlertTo, tables.Hospitals, logger)
	defer alerts.Wait()
	notifier := dashboard.MultiNotifier{dashboard.LogNotifier{Logger: logger}, alerts}

	// 4. Change subscribers, in priority order
	var subscribers []usecase.ChangeSubscriber
	if cfg.StoreDriver == database.DriverPostgres && cfg.DatabaseURL != "" {
		subscribers = append(subscribers, realtime.NewPGSubscriber(cfg.DatabaseURL, logger))
	}
	if rabbit != nil {
		subscribers = append(subscribers, queue.NewSubscriber(rabbit.Conn, logger))
	}

	// 5. Handlers
	limiter := httpmw.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window)
	hospitalHandler := handlers.NewHospitalHandler(usecase.NewUpdateHospitalUseCase(provider))

	var (
		session         *dashboard.Session
		dashboardRoutes http.Handler
		live            handlers.LiveModer
	)

	store, err := provider.GetOrCreate(ctx)
	if err != nil {
		logger.Error("dashboard unavailable", zap.Error(err))
		dashboardRoutes = handlers.Unavailable(err)
	} else {
		session = dashboard.NewSession(store, dashboard.Options{
			Table:       tables.Hospitals,
			Collation:   collation,
			Subscribers: subscribers,
			Notifier:    notifier,
			Logger:      logger,
		})
		if err := session.Open(ctx); err != nil {
			logger.Warn("initial load failed", zap.Error(err))
		}
		defer session.Close()

		live = session
		dashboardHandler := handlers.NewDashboardHandler(session, cfg.Operator)
		liveHandler := handlers.NewLiveHandler(session, cfg.CORSAllowedOrigins, logger)
		dr := chi.NewRouter()
		dr.Get("/live", liveHandler.Handle)
		dr.Mount("/", dashboardHandler.Routes(limiter.Limit))
		dashboardRoutes = dr
	}

	var amqpConn *amqp.Connection
	if rabbit != nil {
		amqpConn = rabbit.Conn
	}
	health := handlers.NewHealthHandler(provider.DB, amqpConn, live, cfg.BuildVersion())

	// 6. Router
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(httpmw.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PATCH", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type"},
	}))

	r.Get("/healthz", health.Handle)
	r.Handle("/metrics", promhttp.Handler())
	r.Get("/hospitals", hospitalHandler.Get)
	r.With(limiter.Limit).Patch("/hospitals", hospitalHandler.Patch)
	r.Mount("/dashboard", dashboardRoutes)

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		limiter.Run(gctx)
		return nil
	})
	if session != nil {
		g.Go(func() error {
			worker.NewResyncWorker(session, cfg.ResyncInterval, logger).Start(gctx)
			return nil
		})
	}

	return g.Wait()
}
