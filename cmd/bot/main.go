package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"TradeSentry/internal/advisor"
	"TradeSentry/internal/collector"
	"TradeSentry/internal/config"
	"TradeSentry/internal/indicator"
	"TradeSentry/internal/notifier"
	"TradeSentry/internal/scheduler"
	"TradeSentry/internal/store"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] TradeSentry starting...")

	// .env is optional; real env vars always win.
	_ = godotenv.Load()

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
	log.Printf("[INFO] watching %d instruments, poll every %s", len(cfg.Instruments), cfg.PollInterval())

	// Init fetcher
	fetcher := collector.NewEastmoneyFetcher(cfg.Proxy, time.Duration(cfg.DataSource.TimeoutSeconds)*time.Second)
	log.Printf("[INFO] data source: %s", fetcher.Name())

	// Init snapshot store. Unlike alerts or advisory, the store is not
	// optional: no durable history means no indicators.
	st, err := store.NewSQLiteStore(cfg.Database.SQLitePath)
	if err != nil {
		log.Fatalf("[FATAL] init sqlite store: %v", err)
	}
	defer st.Close()

	ing := collector.NewIngestor(fetcher, st, cfg.PerRequestDelay())
	eng := indicator.NewEngine(st)

	// Init advisory client
	var svc advisor.Service
	if cfg.Advisory.Enabled {
		svc = advisor.NewClient(cfg.Advisory.BaseURL, cfg.Advisory.APIKey, cfg.Advisory.Model,
			time.Duration(cfg.Advisory.TimeoutSeconds)*time.Second)
		log.Printf("[INFO] advisory enabled: %s", cfg.Advisory.Model)
	} else {
		log.Println("[INFO] advisory disabled, rule verdicts only")
	}
	fus := advisor.NewFusion(svc)

	// Init alert channel
	var sender notifier.Sender
	if cfg.Alerts.Enabled {
		sender = notifier.NewLarkNotifier(cfg.Alerts.WebhookURL, cfg.Alerts.Prefix, cfg.Proxy)
	} else {
		log.Println("[WARN] alerts disabled, decisions will only be logged")
	}
	gate := notifier.NewGate(cfg.Alerts.EmitAll)

	// Context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Init scheduler
	sched := scheduler.NewScheduler(ctx, cfg, ing, eng, fus, gate, sender, st)
	if err := sched.Register(cfg.PollInterval(), cfg.Backfill.Cron); err != nil {
		log.Fatalf("[FATAL] register cron tasks: %v", err)
	}
	sched.Start()

	// Optional: seed daily history before the first cycle needs it
	if cfg.Backfill.OnStart {
		log.Println("[INFO] backfill on start enabled, seeding daily history now")
		go sched.RunBackfillNow()
	}

	log.Println("[INFO] TradeSentry is running. Press Ctrl+C to stop.")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[INFO] shutdown signal received, stopping...")
	// Drain any in-flight cycle before cancelling, so no instrument is
	// interrupted mid-pipeline and the store closes after the last write.
	sched.Stop()
	cancel()
	log.Println("[INFO] TradeSentry stopped")
}
