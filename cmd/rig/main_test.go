package main

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	app "github.com/okian/markerrig/internal/app"
	"github.com/okian/markerrig/internal/config"
	"github.com/okian/markerrig/internal/sequencer"
	"github.com/okian/markerrig/pkg/logger"
	"github.com/okian/markerrig/pkg/metrics"
	"github.com/smartystreets/goconvey/convey"
)

func TestExitCode(t *testing.T) {
	convey.Convey("Given session results", t, func() {
		convey.So(exitCode(nil), convey.ShouldEqual, 0)
		convey.So(exitCode(sequencer.ErrSessionAborted), convey.ShouldEqual, 1)
		convey.So(exitCode(context.Canceled), convey.ShouldEqual, 1)
		convey.So(exitCode(errors.New("boom")), convey.ShouldEqual, 1)
	})
}

func TestMux(t *testing.T) {
	convey.Convey("Given the rig mux over a stopped service", t, func() {
		cfg := config.New()
		cfg.MarkerHost = "127.0.0.1"
		svc := app.New(cfg, app.WithLogger(logger.Nop()))
		mux := newMux(context.Background(), svc)

		routes := map[string]int{
			"/healthz":      http.StatusOK,
			"/stats":        http.StatusOK,
			"/v1/va":        http.StatusOK,
			"/openapi.yaml": http.StatusOK,
			"/api-docs":     http.StatusOK,
		}
		for path, want := range routes {
			req := httptest.NewRequest(http.MethodGet, path, http.NoBody)
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, want)
		}

		convey.Convey("Then ratings should be refused without a session", func() {
			req := httptest.NewRequest(http.MethodPost, "/ratings", strings.NewReader(`{"value":3}`))
			w := httptest.NewRecorder()
			mux.ServeHTTP(w, req)
			convey.So(w.Code, convey.ShouldEqual, http.StatusConflict)
		})
	})
}

func TestUpdateSystemMetrics(t *testing.T) {
	convey.Convey("Updating system metrics should publish a goroutine count", t, func() {
		updateSystemMetrics()
		families, err := metrics.GetRegistry().Gather()
		convey.So(err, convey.ShouldBeNil)

		var goroutines float64
		for _, f := range families {
			if f.GetName() == "markerrig_system_goroutine_count" {
				goroutines = f.GetMetric()[0].GetGauge().GetValue()
			}
		}
		convey.So(goroutines, convey.ShouldBeGreaterThan, 0)
	})
}
