package config_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/okian/rosterlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
				convey.So(cfg.FetchTimeoutMS, convey.ShouldEqual, 10_000)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("ROSTERLENS_ADDR", ":8080")
			_ = os.Setenv("ROSTERLENS_WORKER_COUNT", "8")
			_ = os.Setenv("ROSTERLENS_BATCH_TIMEOUT_MS", "60000")
			_ = os.Setenv("ROSTERLENS_COALESCE_USERNAMES", "true")
			_ = os.Setenv("ROSTERLENS_REDIS_ADDR", "localhost:6379")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 8)
				convey.So(cfg.BatchTimeoutMS, convey.ShouldEqual, 60000)
				convey.So(cfg.CoalesceUsernames, convey.ShouldBeTrue)
				convey.So(cfg.RedisAddr, convey.ShouldEqual, "localhost:6379")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			yamlContent := `
addr: ":9090"
worker_count: 3
fetch_attempts: 3
leetcode_url: "http://127.0.0.1:9999/graphql"
distribution_bins: "0,1-10,11+"
`
			tmpFile := createTempConfigFile(yamlContent)
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ROSTERLENS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 3)
				convey.So(cfg.FetchAttempts, convey.ShouldEqual, 3)
				convey.So(cfg.LeetCodeURL, convey.ShouldEqual, "http://127.0.0.1:9999/graphql")
				convey.So(cfg.DistributionBins, convey.ShouldEqual, "0,1-10,11+")
			})

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("ROSTERLENS_WORKER_COUNT", "12")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.WorkerCount, convey.ShouldEqual, 12)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_ = os.Setenv("ROSTERLENS_CONFIG", "/non/existent/file.yaml")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the YAML is malformed", func() {
			tmpFile := createTempConfigFile("addr: [unterminated\n")
			defer func() { _ = os.Remove(tmpFile) }()
			_ = os.Setenv("ROSTERLENS_CONFIG", tmpFile)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should fail with a load error", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When the values are invalid", func() {
			_ = os.Setenv("ROSTERLENS_WORKER_COUNT", "0")

			cfg, err := config.Load(ctx)

			convey.Convey("Then validation rejects them", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a number is not parseable", func() {
			_ = os.Setenv("ROSTERLENS_WORKER_COUNT", "not_a_number")

			cfg, err := config.Load(ctx)

			convey.Convey("Then unmarshalling fails", func() {
				convey.So(cfg, convey.ShouldBeNil)
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}

// Helper functions.

func clearConfigEnvVars() {
	envVars := []string{
		"ROSTERLENS_CONFIG",
		"ROSTERLENS_ADDR",
		"ROSTERLENS_WORKER_COUNT",
		"ROSTERLENS_BATCH_TIMEOUT_MS",
		"ROSTERLENS_COALESCE_USERNAMES",
		"ROSTERLENS_REDIS_ADDR",
	}
	for _, envVar := range envVars {
		_ = os.Unsetenv(envVar)
	}
}

func createTempConfigFile(content string) string {
	tmpFile, err := os.CreateTemp("", "rosterlens-config-*.yaml")
	if err != nil {
		panic(err)
	}
	if _, err := tmpFile.WriteString(content); err != nil {
		panic(err)
	}
	if err := tmpFile.Close(); err != nil {
		panic(err)
	}
	return tmpFile.Name()
}
