// Command loadcheck uploads a generated roster to a running rosterlens and
// verifies the enriched result. Point rosterlens at stub-leetcode first:
//
//	stub-leetcode -addr :9090 &
//	ROSTERLENS_LEETCODE_URL=http://localhost:9090 rosterlens serve &
//	loadcheck -students 2000
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/okian/rosterlens/internal/loadcheck"
	"github.com/okian/rosterlens/pkg/logger"
)

func main() {
	var (
		baseURL      = flag.String("url", "http://localhost:9080", "Base URL of the rosterlens service")
		students     = flag.Int("students", loadcheck.DefaultStudents, "Number of students in the generated roster")
		ghostEvery   = flag.Int("ghost-every", loadcheck.DefaultGhostEvery, "Every nth student gets a username with no profile")
		blankEvery   = flag.Int("blank-every", loadcheck.DefaultBlankEvery, "Every nth student has no username")
		repeatEvery  = flag.Int("repeat-every", loadcheck.DefaultRepeatEvery, "Every nth student repeats an earlier username")
		seed         = flag.Int64("seed", 1, "Generator seed")
		topN         = flag.Int("top", loadcheck.DefaultTopN, "Size of the top view to check")
		timeout      = flag.Duration("timeout", loadcheck.DefaultTimeout, "HTTP request timeout")
		waitTimeout  = flag.Duration("wait", loadcheck.DefaultWaitTimeout, "How long to wait for enrichment")
		pollInterval = flag.Duration("poll", loadcheck.DefaultPollInterval, "Progress polling interval")
		outputFile   = flag.String("output", "", "Write the generated roster CSV here")
		verbose      = flag.Bool("verbose", false, "Log every progress change")
	)
	flag.Parse()

	if err := logger.Init(logger.WithWriter(os.Stderr)); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := &loadcheck.Config{
		BaseURL:      *baseURL,
		Students:     *students,
		GhostEvery:   *ghostEvery,
		BlankEvery:   *blankEvery,
		RepeatEvery:  *repeatEvery,
		Seed:         *seed,
		TopN:         *topN,
		Timeout:      *timeout,
		WaitTimeout:  *waitTimeout,
		PollInterval: *pollInterval,
		OutputFile:   *outputFile,
		Verbose:      *verbose,
	}
	if _, err := loadcheck.Run(ctx, cfg); err != nil {
		logger.Get().Error(ctx, "load check failed", logger.Error(err))
		os.Exit(1)
	}
}
