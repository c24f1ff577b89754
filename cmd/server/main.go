package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"koubyte-be/internal/api"
	"koubyte-be/internal/appointment"
	"koubyte-be/internal/auth"
	"koubyte-be/internal/blog"
	"koubyte-be/internal/cart"
	"koubyte-be/internal/catalog"
	"koubyte-be/internal/chat"
	"koubyte-be/internal/config"
	"koubyte-be/internal/contact"
	"koubyte-be/internal/dashboard"
	"koubyte-be/internal/db"
	"koubyte-be/internal/discount"
	"koubyte-be/internal/logger"
	"koubyte-be/internal/mailer"
	"koubyte-be/internal/metrics"
	"koubyte-be/internal/middleware"
	"koubyte-be/internal/notification"
	"koubyte-be/internal/order"
	"koubyte-be/internal/payment"
	"koubyte-be/internal/payment/webhook"
	"koubyte-be/internal/quote"
	"koubyte-be/internal/review"
	"koubyte-be/internal/scheduler"
	"koubyte-be/internal/user"

	"go.uber.org/zap"
)

const (
	shutdownTimeout = 10 * time.Second
	mailWorkers     = 4
)

var (
	initDBFunc      = db.NewDatabase
	startServerFunc = func(srv *http.Server) error { return srv.ListenAndServe() }
)

// server is everything run starts and stops.
type server struct {
	handler   http.Handler
	scheduler *scheduler.Scheduler
	mail      *mailer.Dispatcher
	limiter   *middleware.RateLimiter
}

func paymentProviders(cfg *config.Config) (map[string]payment.Provider, error) {
	providers := map[string]payment.Provider{}
	if cfg.StripeSecretKey != "" {
		p, err := payment.NewStripeProvider(cfg.StripeSecretKey)
		if err != nil {
			return nil, err
		}
		providers[payment.ProviderStripe] = p
	}
	if cfg.MollieAPIKey != "" {
		p, err := payment.NewMollieProvider(cfg.MollieAPIKey)
		if err != nil {
			return nil, err
		}
		providers[payment.ProviderMollie] = p
	}
	return providers, nil
}

func newServer(cfg *config.Config, database *sql.DB) (*server, error) {
	reg := metrics.NewRegistry()
	tokens := auth.NewTokenManager(cfg.JWTSecret, auth.DefaultTokenTTL)

	var sender mailer.Sender = mailer.NoopSender{}
	if cfg.SMTPHost != "" {
		sender = mailer.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword, cfg.SMTPFrom)
	}
	mail, err := mailer.NewDispatcher(sender, mailWorkers, reg)
	if err != nil {
		return nil, fmt.Errorf("mail dispatcher: %w", err)
	}

	providers, err := paymentProviders(cfg)
	if err != nil {
		return nil, fmt.Errorf("payment providers: %w", err)
	}

	notifications := notification.NewService(notification.NewRepository(database))
	users := user.NewService(user.NewRepository(database), tokens, auth.BcryptHasher{})
	services := catalog.NewService(catalog.NewRepository(database))
	discountRepo := discount.NewRepository(database)

	paymentRepo := payment.NewRepository(database)
	payments := payment.NewService(paymentRepo, payment.NewManager(providers), payment.Options{
		PublicBaseURL:   cfg.PublicBaseURL,
		FrontendURL:     cfg.FrontendURL,
		Currency:        cfg.Currency,
		BankIBAN:        cfg.BankIBAN,
		BankBeneficiary: cfg.BankBeneficiary,
	}, reg, notifications)

	h := &api.Handler{
		Users:   users,
		Catalog: services,
		Cart:    cart.NewService(cart.NewRepository(database), services),
		Orders: order.NewService(order.NewRepository(database), discountRepo, payments, users,
			notifications, mail, cfg.Currency),
		Payments:      payments,
		Webhooks:      webhook.NewHandler(paymentRepo, payments, cfg.StripeWebhookSecret, reg),
		Discounts:     discount.NewService(discountRepo),
		Quotes:        quote.NewService(quote.NewRepository(database), services, notifications, mail, cfg.AdminEmail),
		Appointments:  appointment.NewService(appointment.NewRepository(database), services, notifications),
		Reviews:       review.NewService(review.NewRepository(database)),
		Contact:       contact.NewService(contact.NewRepository(database), mail, cfg.AdminEmail),
		Chat:          chat.NewService(chat.NewRepository(database)),
		Notifications: notifications,
		Blog:          blog.NewService(blog.NewRepository(database), blog.NewRenderer()),
		Dashboard:     dashboard.NewService(dashboard.NewRepository(database)),
		Metrics:       reg,
		SecureCookies: cfg.IsProduction(),
	}

	sched, err := scheduler.New(payments, paymentRepo)
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	limiter := middleware.NewRateLimiter(cfg.InternalSecretKey, api.StrictPrefixes, api.PollingPrefixes)

	return &server{
		handler: api.NewRouter(h, api.RouterOptions{
			Tokens:     tokens,
			Limiter:    limiter,
			CORSOrigin: cfg.CORSOrigin,
		}),
		scheduler: sched,
		mail:      mail,
		limiter:   limiter,
	}, nil
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.AppEnv, cfg.LogFile)
	defer logger.Sync()
	log := logger.L()

	database, err := initDBFunc(cfg)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer database.Close()

	srv, err := newServer(cfg, database)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	go srv.limiter.Run(ctx)
	srv.scheduler.Start()

	httpServer := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           srv.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", httpServer.Addr), zap.String("env", cfg.AppEnv))
		errCh <- startServerFunc(httpServer)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", zap.Error(err))
			cancel()
			_ = shutdown(srv, httpServer)
			return err
		}
	case <-ctx.Done():
		log.Info("shutdown requested")
	}

	return shutdown(srv, httpServer)
}

// shutdown drains HTTP first, then background jobs, then queued mail.
func shutdown(srv *server, httpServer *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := httpServer.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http: %w", err))
	}
	if err := srv.scheduler.Stop(ctx); err != nil {
		errs = append(errs, fmt.Errorf("scheduler: %w", err))
	}
	remaining := shutdownTimeout
	if deadline, ok := ctx.Deadline(); ok {
		remaining = time.Until(deadline)
	}
	if err := srv.mail.Close(remaining); err != nil {
		errs = append(errs, fmt.Errorf("mailer: %w", err))
	}
	logger.L().Info("server stopped")
	return errors.Join(errs...)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "koubyte-be:", err)
		os.Exit(1)
	}
}
