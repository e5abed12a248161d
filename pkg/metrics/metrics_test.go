package metrics_test

import (
	"testing"

	"github.com/hotlabel/hotlabel/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestNewManager(t *testing.T) {
	Convey("Given a fresh registry", t, func() {
		reg := prometheus.NewRegistry()

		Convey("When creating a manager against it", func() {
			m := metrics.NewManager(
				metrics.WithRegistry(reg),
				metrics.WithNamespace("test"),
				metrics.WithSubsystem("core"),
			)

			Convey("Then the manager is usable and collectors are registered", func() {
				So(m, ShouldNotBeNil)
				families, err := reg.Gather()
				So(err, ShouldBeNil)
				So(len(families), ShouldBeGreaterThan, 0)
			})
		})
	})
}

func TestPackageHelpers(t *testing.T) {
	Convey("Given the global manager", t, func() {
		Convey("Then the helpers record without panicking", func() {
			So(func() {
				metrics.RecordTaskServed()
				metrics.RecordGoldenInjection()
				metrics.RecordBatchServed()
				metrics.RecordSessionStarted()
				metrics.RecordSubmission(0.8)
				metrics.RecordSubmissionDuplicate()
				metrics.RecordValidationIssue("slow_response")
				metrics.RecordRewardGranted("7200")
				metrics.RecordRateLimited()
				metrics.RecordRateLimitFailOpen()
				metrics.UpdateStoreEntries(10)
				metrics.RecordStoreEvictions(3)
				metrics.RecordHTTPRequest("tasks_next", "GET", "200")
				metrics.RecordHTTPRequestDuration("tasks_next", "GET", "200", 12.5)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry gathers the recorded families", func() {
			families, err := metrics.GetRegistry().Gather()
			So(err, ShouldBeNil)
			So(len(families), ShouldBeGreaterThan, 0)
		})
	})
}
