package config_test

import (
	"testing"

	"github.com/hotlabel/hotlabel/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
			convey.So(cfg.StoreBackend, convey.ShouldEqual, "memory")
			convey.So(cfg.PlatformMaxComplexity, convey.ShouldEqual, 3)
			convey.So(cfg.AssignmentTTLSeconds, convey.ShouldEqual, 3600)
			convey.So(cfg.LeaseTTLSeconds, convey.ShouldEqual, 300)
			convey.So(cfg.SessionTTLSeconds, convey.ShouldEqual, 86400)
			convey.So(cfg.MaxBatchSize, convey.ShouldEqual, 100)
		})

		convey.Convey("Then the lease is strictly shorter than the assignment", func() {
			convey.So(cfg.LeaseTTLSeconds, convey.ShouldBeLessThan, cfg.AssignmentTTLSeconds)
		})
	})
}
