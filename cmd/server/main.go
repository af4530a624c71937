// Command server runs the newsletter-publishing HTTP API and its delivery
// worker as two supervised goroutines: if either exits, the process logs
// and terminates, per spec.md §5 (no graceful drain — unfinished work
// remains in the queue and is retried on next startup).
package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/strv-go/newsletter-publisher/internal/config"
	"github.com/strv-go/newsletter-publisher/internal/email"
	"github.com/strv-go/newsletter-publisher/internal/handler"
	"github.com/strv-go/newsletter-publisher/internal/password"
	"github.com/strv-go/newsletter-publisher/internal/repository"
	"github.com/strv-go/newsletter-publisher/internal/router"
	"github.com/strv-go/newsletter-publisher/internal/session"
	"github.com/strv-go/newsletter-publisher/internal/setup"
	"github.com/strv-go/newsletter-publisher/internal/worker"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	if err := run(sugar); err != nil {
		sugar.Fatalw("server exited with error", "error", err)
	}
}

func run(logger *zap.SugaredLogger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, err := config.Load("config")
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	pool, err := setup.ConnectPool(ctx, settings.DB.ConnectionString())
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()

	redisClient, err := setup.ConnectRedis(ctx, settings.RedisURI)
	if err != nil {
		return fmt.Errorf("connect redis: %w", err)
	}
	defer redisClient.Close()

	sink := email.New(email.Config{
		APIBaseURL:          settings.EmailClient.APIBaseURL,
		SenderEmail:         settings.EmailClient.SenderEmail,
		AuthorizationToken:  settings.EmailClient.AuthorizationToken,
		TimeoutMilliseconds: settings.EmailClient.TimeoutMilliseconds,
	})

	subscriptions := repository.NewSubscriptionStore(pool, settings.App.BaseURL, func(ctx context.Context, toEmail, toName, confirmationLink string) error {
		subject := "Welcome! Please confirm your subscription"
		textBody := fmt.Sprintf("Welcome to our newsletter, %s!\nConfirm your subscription by visiting: %s", toName, confirmationLink)
		htmlBody := fmt.Sprintf(`Welcome to our newsletter, %s!<br/><a href="%s">Click here to confirm your subscription.</a>`, toName, confirmationLink)
		_, err := sink.Send(ctx, toEmail, subject, htmlBody, textBody)
		return err
	})
	idempotency := repository.NewIdempotencyStore(pool)
	issues := repository.NewIssuePublisher()
	users := repository.NewUserStore(pool)
	deliveryQueue := repository.NewDeliveryQueue(pool)

	sessions := session.New(redisClient)

	if err := seedAdmin(ctx, users, settings); err != nil {
		return fmt.Errorf("seed admin user: %w", err)
	}

	templates, err := handler.NewTemplates()
	if err != nil {
		return fmt.Errorf("parse templates: %w", err)
	}

	deps := &handler.Dependencies{
		Subscriptions: subscriptions,
		Idempotency:   idempotency,
		Issues:        issues,
		Users:         users,
		Sessions:      sessions,
		Templates:     templates,
		Logger:        logger,
	}

	httpServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", settings.App.Port),
		Handler: router.New(deps, sessions, logger),
	}

	deliveryWorker := worker.New(deliveryQueue, sink, logger)

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		logger.Infow("http server listening", "addr", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	group.Go(func() error {
		return deliveryWorker.Run(groupCtx)
	})

	group.Go(func() error {
		// No graceful drain: spec.md §5 treats the supervisor's job as
		// terminating the process the instant either top-level task exits,
		// leaving unfinished work for the next startup to retry.
		<-groupCtx.Done()
		return httpServer.Close()
	})

	return group.Wait()
}

// seedAdmin provisions the bootstrap administrator from configuration on
// every startup, an explicit, narrowed stand-in for the source's one-off
// bootstrap registration (spec.md §9 treats this as out-of-scope bootstrap).
func seedAdmin(ctx context.Context, users *repository.UserStore, settings *config.Settings) error {
	if settings.App.AdminUsername == "" || settings.App.AdminPassword == "" {
		return nil
	}

	salt, err := password.NewSalt()
	if err != nil {
		return err
	}
	hashed, err := password.Hash(settings.App.AdminPassword, salt)
	if err != nil {
		return err
	}

	return users.EnsureSeeded(ctx, uuid.NewString(), settings.App.AdminUsername, hashed, salt)
}
