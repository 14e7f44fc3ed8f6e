package main

import (
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/deusflow/telecomnews/internal/app"
	"github.com/deusflow/telecomnews/internal/config"
	"github.com/deusflow/telecomnews/internal/logger"
	"github.com/deusflow/telecomnews/internal/metrics"
)

func main() {
	testMode := flag.Bool("test", false, "build the digest and write HTML to output/ without sending mail")
	testFeeds := flag.Bool("test-feeds", false, "fetch and score feeds only, print the top items")
	testRank := flag.Bool("test-rank", false, "run the AI ranker over fetched titles and print the order")
	flag.Parse()

	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration error", "error", err)
		os.Exit(1)
	}

	// Operator abort cancels between pipeline stages, not mid-stage.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	switch {
	case *testFeeds:
		err = a.CheckFeeds(ctx)
	case *testRank:
		err = a.CheckRank(ctx)
	default:
		if !*testMode {
			if err := cfg.ValidateDelivery(); err != nil {
				logger.Error("configuration error", "error", err)
				os.Exit(1)
			}
		}
		if os.Getenv("ENABLE_HTTP_MONITORING") == "true" {
			go startMonitoringServer()
		}
		err = a.Run(ctx, app.Options{SkipDelivery: *testMode})
	}

	if err != nil {
		logger.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func startMonitoringServer() {
	port := os.Getenv("MONITORING_PORT")
	if port == "" {
		port = "8080"
	}

	http.HandleFunc("/health", healthHandler)
	http.HandleFunc("/metrics", metricsHandler)

	logger.Info("starting monitoring server", "port", port)
	if err := http.ListenAndServe(":"+port, nil); err != nil {
		logger.Error("monitoring server error", "error", err)
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	status := "ok"
	if !stats["is_healthy"].(bool) {
		status = "error"
		w.WriteHeader(http.StatusServiceUnavailable)
	}

	response := map[string]interface{}{
		"status":     status,
		"last_run":   stats["last_run_time"],
		"last_error": stats["last_error"],
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(response)
}

func metricsHandler(w http.ResponseWriter, r *http.Request) {
	stats := metrics.Global.GetStats()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(stats)
}
