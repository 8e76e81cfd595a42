package main

import (
	"context"
	"log"
	"os"
	"runtime/debug"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clearchange/moc-tracker/internal/server"
	"github.com/clearchange/moc-tracker/modules"
	coreservices "github.com/clearchange/moc-tracker/modules/core/services"
	"github.com/clearchange/moc-tracker/pkg/application"
	"github.com/clearchange/moc-tracker/pkg/composables"
	"github.com/clearchange/moc-tracker/pkg/configuration"
	"github.com/clearchange/moc-tracker/pkg/eventbus"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			log.Println(r)
			debug.PrintStack()
			os.Exit(1)
		}
	}()

	conf := configuration.Use()
	logger := conf.Logger()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	pool, err := pgxpool.New(ctx, conf.Database.Opts)
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	app := application.New(&application.ApplicationOptions{
		Pool:     pool,
		EventBus: eventbus.NewEventPublisher(logger),
		Logger:   logger,
	})
	if err := modules.Load(app); err != nil {
		log.Fatalf("failed to load modules: %v", err)
	}

	seedCtx := composables.WithPool(context.Background(), pool)
	if err := app.Seed(seedCtx); err != nil {
		log.Fatalf("failed to seed: %v", err)
	}

	authService := app.Service(coreservices.AuthService{}).(*coreservices.AuthService)
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for range ticker.C {
			if err := authService.CleanupExpired(seedCtx); err != nil {
				logger.WithError(err).Warn("failed to clean up expired sessions")
			}
		}
	}()

	srv, err := server.Default(&server.DefaultOptions{
		Logger:        logger,
		Configuration: conf,
		Application:   app,
		Pool:          pool,
	})
	if err != nil {
		log.Fatalf("failed to build server: %v", err)
	}

	logger.WithField("address", conf.SocketAddress).Info("server listening")
	if err := srv.Start(conf.SocketAddress); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
