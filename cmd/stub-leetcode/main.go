// Command stub-leetcode serves the deterministic profile table over the
// LeetCode GraphQL wire format, for local runs and load checks.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/okian/rosterlens/internal/stubserver"
	"github.com/okian/rosterlens/pkg/logger"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 10 * time.Second
)

func main() {
	var (
		addr        = flag.String("addr", ":9090", "Listen address")
		minLatency  = flag.Duration("min-latency", 80*time.Millisecond, "Minimum simulated latency")
		maxLatency  = flag.Duration("max-latency", 150*time.Millisecond, "Maximum simulated latency")
		seed        = flag.Int64("seed", 42, "Latency seed")
		unavailable = flag.Int("unavailable-every", 0, "Answer every nth request with 503 (0 disables)")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	log := logger.Named("stub-leetcode")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stub := stubserver.New(
		stubserver.WithLatencyRange(*minLatency, *maxLatency),
		stubserver.WithSeed(*seed),
		stubserver.WithUnavailableEvery(*unavailable),
		stubserver.WithLogger(log),
	)
	srv := &http.Server{Addr: *addr, Handler: stub, ReadHeaderTimeout: readHeaderTimeout}

	go func() {
		log.Info(ctx, "serving stub profiles", logger.String("addr", *addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(ctx, "stub server failed", logger.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "stub stopped", logger.Int64("requests", stub.Requests()))
}
