package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"dcpr.org/internal/auth"
	"dcpr.org/internal/config"
	"dcpr.org/internal/dcpr"
	"dcpr.org/internal/httpapi"
	"dcpr.org/internal/notify"
	"dcpr.org/internal/obs"
	pgstore "dcpr.org/internal/store/pg"
	"dcpr.org/internal/stream"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	var (
		requests  dcpr.Store
		jobs      notify.JobStore
		directory auth.Directory
		probe     httpapi.ReadyProbe
		closeFn   = func() {}
	)
	if cfg.UsePostgres() {
		store, err := pgstore.Open(cfg.PostgresDSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		requests = store
		jobs = notify.NewPGJobStore(store.DB())
		directory = auth.NewPGDirectory(store.DB())
		probe = httpapi.ReadyProbe{DB: store.DB()}
		closeFn = func() { _ = store.Close() }
	} else {
		requests = dcpr.NewInMemory()
		jobs = notify.NewInMemoryJobStore()
		directory = auth.NewInMemoryDirectory()
	}

	tokens, err := auth.NewTokens(cfg.AuthSecret, cfg.TokenTTL)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}

	activities := stream.New()
	queue := notify.NewQueue(jobs)
	svc := dcpr.NewService(requests,
		dcpr.WithQueue(queue),
		dcpr.WithPublisher(stream.NewPublisher(activities)),
	)

	dispatcher := notify.NewDispatcher(jobs, notify.LogNotifier{},
		notify.WithPollInterval(cfg.NotifyInterval),
		notify.WithMaxAttempts(cfg.NotifyMaxTries),
	)

	api := httpapi.New(httpapi.Options{
		Service:        svc,
		Directory:      directory,
		Tokens:         tokens,
		Stream:         activities,
		ReadyProbe:     probe,
		Version:        version,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		MaxBodyBytes:   cfg.MaxBodyBytes,
	})

	// No WriteTimeout: the SSE feed holds its connection open.
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	dispatcherCtx, stopDispatcher := context.WithCancel(context.Background())
	go dispatcher.Run(dispatcherCtx)

	log.Printf("Starting dcpr-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	_ = srv.Shutdown(ctx)
	stopDispatcher()
	closeFn()
	log.Println("Stopped")
}
