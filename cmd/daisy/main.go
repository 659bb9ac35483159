package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sofytk/lazy-daisy/internal/config"
	"github.com/sofytk/lazy-daisy/internal/httpapi"
	"github.com/sofytk/lazy-daisy/internal/hub"
	"github.com/sofytk/lazy-daisy/internal/journal"
	"github.com/sofytk/lazy-daisy/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] lazy-daisy starting...")

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Init local journal
	var jnl journal.Journal
	if cfg.Journal.SQLitePath != "" {
		sj, err := journal.NewSQLiteJournal(cfg.Journal.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite journal failed, using noop: %v", err)
			jnl = journal.NewNoopJournal()
		} else {
			jnl = sj
			defer sj.Close()
		}
	} else {
		jnl = journal.NewNoopJournal()
	}

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Session registry
	h := hub.NewHub(ctx)

	// Periodic ledger reconciliation
	sched := scheduler.NewScheduler(h)
	if err := sched.Register(cfg.Refresh.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	// HTTP surface
	api := httpapi.NewAPI(h, cfg, jnl)
	srv := &http.Server{
		Addr:    cfg.Server.ListenAddr,
		Handler: api.SetupRoutes(),
	}
	go func() {
		log.Printf("[INFO] listening on %s", cfg.Server.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[FATAL] http server: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] http shutdown: %v", err)
	}
	h.Inbox() <- hub.ShutdownHub{}
	cancel()
	log.Println("[INFO] lazy-daisy stopped")
}
