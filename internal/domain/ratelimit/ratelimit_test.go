package ratelimit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	"github.com/hotlabel/hotlabel/internal/domain/ratelimit"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// brokenStore simulates an unreachable shared store.
type brokenStore struct{}

func (brokenStore) SlideWindow(ctx context.Context, key string, now time.Time, window time.Duration) (int, error) {
	return 0, errors.New("connection refused")
}

func newLimiter() (*ratelimit.Limiter, *fakeClock, *store.MemoryStore) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(
		store.WithClock(clock.Now),
		store.WithSweepInterval(time.Hour),
	)
	l := ratelimit.New(s, ratelimit.WithClock(clock.Now))
	return l, clock, s
}

func TestLimiter_SlidingWindow(t *testing.T) {
	Convey("Given a limiter with limit 3 over a 60s window", t, func() {
		l, clock, s := newLimiter()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When exactly the limit of requests arrive", func() {
			var last ratelimit.Decision
			for i := 0; i < 3; i++ {
				last = l.Check(ctx, "pub:/v1/tasks/next", 3, 60)
				So(last.Allowed, ShouldBeTrue)
			}

			Convey("Then remaining counts down to zero", func() {
				So(last.Remaining, ShouldEqual, 0)
			})

			Convey("Then the next request is rejected", func() {
				d := l.Check(ctx, "pub:/v1/tasks/next", 3, 60)
				So(d.Allowed, ShouldBeFalse)
				So(d.Remaining, ShouldEqual, 0)
			})

			Convey("Then a slot frees after the window passes", func() {
				clock.Advance(61 * time.Second)
				d := l.Check(ctx, "pub:/v1/tasks/next", 3, 60)
				So(d.Allowed, ShouldBeTrue)
			})
		})

		Convey("When a rejected request is retried immediately", func() {
			for i := 0; i < 3; i++ {
				l.Check(ctx, "k", 3, 60)
			}
			d := l.Check(ctx, "k", 3, 60)
			So(d.Allowed, ShouldBeFalse)

			Convey("Then the rejection itself counted against the window", func() {
				// 4 members now; even after the first request ages out
				// the window stays full.
				clock.Advance(30 * time.Second)
				d := l.Check(ctx, "k", 3, 60)
				So(d.Allowed, ShouldBeFalse)
			})
		})

		Convey("When different keys are checked", func() {
			for i := 0; i < 3; i++ {
				l.Check(ctx, "a", 3, 60)
			}
			So(l.Check(ctx, "a", 3, 60).Allowed, ShouldBeFalse)

			Convey("Then other keys are unaffected", func() {
				So(l.Check(ctx, "b", 3, 60).Allowed, ShouldBeTrue)
			})
		})
	})
}

func TestLimiter_ResetSeconds(t *testing.T) {
	Convey("Given a limiter", t, func() {
		l, clock, s := newLimiter()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When the window is 60s or shorter", func() {
			d := l.Check(ctx, "k", 5, 60)

			Convey("Then reset is the window length verbatim", func() {
				So(d.ResetSeconds, ShouldEqual, 60)
			})
		})

		Convey("When the window is longer than a minute", func() {
			d := l.Check(ctx, "k", 5, 3600)

			Convey("Then reset aligns to the wall-clock window boundary", func() {
				want := 3600 - int(clock.Now().Unix()%3600)
				So(d.ResetSeconds, ShouldEqual, want)
			})
		})
	})
}

func TestLimiter_FailOpen(t *testing.T) {
	Convey("Given a limiter whose store is unreachable", t, func() {
		l := ratelimit.New(brokenStore{})

		Convey("When checking a request", func() {
			d := l.Check(context.Background(), "k", 1, 60)

			Convey("Then the request is allowed", func() {
				So(d.Allowed, ShouldBeTrue)
				So(d.Remaining, ShouldEqual, 1)
				So(d.ResetSeconds, ShouldEqual, 60)
			})
		})
	})
}

func TestParseQuota(t *testing.T) {
	Convey("Given quota strings", t, func() {
		cases := map[string]ratelimit.Quota{
			"10/second": {Limit: 10, WindowSeconds: 1},
			"60/minute": {Limit: 60, WindowSeconds: 60},
			"100/hour":  {Limit: 100, WindowSeconds: 3600},
			"500/day":   {Limit: 500, WindowSeconds: 86400},
			"7/week":    {Limit: 7, WindowSeconds: 86400},
		}

		Convey("Then each parses to its limit and window", func() {
			for in, want := range cases {
				q, err := ratelimit.ParseQuota(in)
				So(err, ShouldBeNil)
				So(q, ShouldResemble, want)
			}
		})

		Convey("Then malformed strings are rejected", func() {
			for _, in := range []string{"", "minute", "x/minute", "0/minute", "-1/hour"} {
				_, err := ratelimit.ParseQuota(in)
				So(err, ShouldNotBeNil)
			}
		})
	})
}

func TestRules_Resolve(t *testing.T) {
	Convey("Given the default rule table", t, func() {
		rules, err := ratelimit.DefaultRules("10/minute", "2/minute", "5/minute", "100/hour")
		So(err, ShouldBeNil)

		Convey("Then task fetch and submit share the task quota", func() {
			So(rules.Resolve("/v1/tasks/next").Limit, ShouldEqual, 10)
			So(rules.Resolve("/v1/tasks/abc-123/submit").Limit, ShouldEqual, 10)
		})

		Convey("Then batch gets its own quota", func() {
			So(rules.Resolve("/v1/tasks/batch").Limit, ShouldEqual, 2)
		})

		Convey("Then session init gets its own quota", func() {
			So(rules.Resolve("/v1/users/sessions").Limit, ShouldEqual, 5)
		})

		Convey("Then unmatched paths fall back to the default", func() {
			q := rules.Resolve("/v1/users/stats")
			So(q.Limit, ShouldEqual, 100)
			So(q.WindowSeconds, ShouldEqual, 3600)
		})
	})
}
