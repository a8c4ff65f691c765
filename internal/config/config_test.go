package config_test

import (
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/okian/rosterlens/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.WorkerCount, convey.ShouldEqual, 5)
			convey.So(cfg.FetchTimeout(), convey.ShouldEqual, 10*time.Second)
			convey.So(cfg.BatchTimeout(), convey.ShouldEqual, time.Duration(0))
			convey.So(cfg.FetchAttempts, convey.ShouldEqual, 1)
			convey.So(cfg.CoalesceUsernames, convey.ShouldBeFalse)
			convey.So(cfg.LeetCodeURL, convey.ShouldEqual, config.DefaultLeetCodeURL)
			convey.So(cfg.DistributionBins, convey.ShouldEqual, config.DefaultBins)
			convey.So(cfg.RedisAddr, convey.ShouldBeEmpty)
			convey.So(cfg.CacheTTL(), convey.ShouldEqual, time.Hour)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with out-of-range values", t, func() {
		cases := map[string]func(*config.Config){
			"empty addr":        func(c *config.Config) { c.Addr = "" },
			"zero workers":      func(c *config.Config) { c.WorkerCount = 0 },
			"gapped bins":       func(c *config.Config) { c.DistributionBins = "0,5-10" },
			"zero timeout":      func(c *config.Config) { c.FetchTimeoutMS = 0 },
			"negative batch":    func(c *config.Config) { c.BatchTimeoutMS = -5 },
			"zero attempts":     func(c *config.Config) { c.FetchAttempts = 0 },
			"negative backoff":  func(c *config.Config) { c.RetryBaseDelayMS = -1 },
			"empty url":         func(c *config.Config) { c.LeetCodeURL = "" },
			"zero top":          func(c *config.Config) { c.TopN = 0 },
			"zero upload limit": func(c *config.Config) { c.MaxUploadBytes = 0 },
			"unknown format":    func(c *config.Config) { c.LogFormat = "xml" },
		}

		names := make([]string, 0, len(cases))
		for name := range cases {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			cfg := config.New()
			cases[name](cfg)
			err := cfg.Validate()

			convey.Convey("Then "+name+" is rejected as invalid config", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}
	})
}
