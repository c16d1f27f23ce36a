package config_test

import (
	"testing"
	"time"

	"github.com/okian/markerrig/internal/config"
	"github.com/okian/markerrig/internal/domain/marker"
	"github.com/okian/markerrig/internal/domain/reaction"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with defaults", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have the lab defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9180")
			convey.So(cfg.MarkerHost, convey.ShouldEqual, "192.168.1.11")
			convey.So(cfg.MarkerPort, convey.ShouldEqual, 9999)
			convey.So(cfg.MarkerTable, convey.ShouldEqual, marker.ProtocolVideoRating)
			convey.So(cfg.BCIURL, convey.ShouldEqual, "ws://127.0.0.1:8765/ws")
			convey.So(cfg.Trials, convey.ShouldHaveLength, 3)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("Then durations should convert from their units", func() {
			convey.So(cfg.OpenRest(), convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.CloseRest(), convey.ShouldEqual, 60*time.Second)
			convey.So(cfg.InterTrialDelay(), convey.ShouldEqual, time.Second)
			convey.So(cfg.FinishDelay(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.BCITick(), convey.ShouldEqual, 50*time.Millisecond)
			convey.So(cfg.ReactionCooldown(), convey.ShouldEqual, 2*time.Second)
			convey.So(cfg.PlayerFixed(), convey.ShouldEqual, 30*time.Second)
		})

		convey.Convey("Then the reaction settings should match the driver defaults", func() {
			convey.So(cfg.ReactionCooldown(), convey.ShouldEqual, reaction.DefaultCooldown)
			convey.So(cfg.ReactionEpsilon, convey.ShouldEqual, reaction.DefaultEpsilon)
		})

		convey.Convey("Then overrides should convert to marker codes", func() {
			convey.So(cfg.Overrides(), convey.ShouldBeNil)
			cfg.MarkerOverrides = map[string]int{"Boredom": 79}
			convey.So(cfg.Overrides(), convey.ShouldResemble, map[string]marker.Code{"Boredom": 79})
		})
	})
}
