package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/RohitSadavarti/vanita.lunch.home/internal/config"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/database"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/notify"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/router"
	"github.com/RohitSadavarti/vanita.lunch.home/internal/ws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const (
	eventQueueSize   = 256
	eventSendTimeout = 5 * time.Second
	shutdownTimeout  = 10 * time.Second
)

func main() {
	// A missing .env is fine; the environment and config file still apply.
	_ = godotenv.Load()

	if err := run(); err != nil {
		log.Fatalf("FATAL: %v", err)
	}
}

func run() error {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(cfg.Database.URL); err != nil {
			return err
		}
		log.Println("Database migrations applied")
	}

	pool, err := pgxpool.New(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	hub := ws.NewHub()
	sinks := []notify.Sink{notify.NewHubSink(hub)}

	if cfg.Firebase.CredentialsFile != "" || cfg.Firebase.CredentialsJSON != "" {
		client, err := notify.NewFCMClient(ctx, cfg.Firebase.CredentialsFile, cfg.Firebase.CredentialsJSON)
		if err != nil {
			log.Printf("WARN: push notifications disabled: %v", err)
		} else {
			sinks = append(sinks, notify.NewFCMSink(client, cfg.Firebase.Topic))
			log.Printf("Push notifications enabled for topic %q", cfg.Firebase.Topic)
		}
	}

	if cfg.AMQP.URL != "" {
		sink, err := notify.NewAMQPSink(cfg.AMQP.URL, cfg.AMQP.Exchange)
		if err != nil {
			log.Printf("WARN: order event broker disabled: %v", err)
		} else {
			defer sink.Close()
			sinks = append(sinks, sink)
			log.Printf("Publishing order events to exchange %q", cfg.AMQP.Exchange)
		}
	}

	dispatcher := notify.NewDispatcher(eventQueueSize, eventSendTimeout, sinks...)

	r, err := router.New(cfg, database.New(pool), pool, hub, dispatcher)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return hub.Run(gctx) })
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error {
		log.Printf("Starting server on :%s", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Println("Shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
