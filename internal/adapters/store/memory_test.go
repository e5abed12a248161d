package store_test

import (
	"context"
	"testing"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeClock is an adjustable clock for TTL tests.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time           { return c.now }
func (c *fakeClock) Advance(d time.Duration)  { c.now = c.now.Add(d) }

func newClockedStore() (*store.MemoryStore, *fakeClock) {
	clock := &fakeClock{now: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
	s := store.NewMemoryStore(
		store.WithClock(clock.Now),
		store.WithSweepInterval(time.Hour),
	)
	return s, clock
}

func TestMemoryStore_SetGet(t *testing.T) {
	Convey("Given a memory store with a fake clock", t, func() {
		s, clock := newClockedStore()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When setting a value with a TTL", func() {
			So(s.Set(ctx, "k", "v", time.Minute), ShouldBeNil)

			Convey("Then it is readable before expiry", func() {
				v, found, err := s.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(found, ShouldBeTrue)
				So(v, ShouldEqual, "v")
			})

			Convey("Then it is gone after expiry", func() {
				clock.Advance(61 * time.Second)
				_, found, err := s.Get(ctx, "k")
				So(err, ShouldBeNil)
				So(found, ShouldBeFalse)
			})
		})

		Convey("When getting an absent key", func() {
			_, found, err := s.Get(ctx, "missing")
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})
	})
}

func TestMemoryStore_SetNX(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s, clock := newClockedStore()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When writing a fresh key", func() {
			written, err := s.SetNX(ctx, "k", "first", time.Minute)
			So(err, ShouldBeNil)
			So(written, ShouldBeTrue)

			Convey("Then a second write loses", func() {
				written, err := s.SetNX(ctx, "k", "second", time.Minute)
				So(err, ShouldBeNil)
				So(written, ShouldBeFalse)

				v, _, _ := s.Get(ctx, "k")
				So(v, ShouldEqual, "first")
			})

			Convey("Then an expired key can be rewritten", func() {
				clock.Advance(2 * time.Minute)
				written, err := s.SetNX(ctx, "k", "second", time.Minute)
				So(err, ShouldBeNil)
				So(written, ShouldBeTrue)
			})
		})
	})
}

func TestMemoryStore_Incr(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s, clock := newClockedStore()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When incrementing an absent counter", func() {
			n, err := s.Incr(ctx, "c", time.Minute)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			Convey("Then further increments advance it", func() {
				n, _ = s.Incr(ctx, "c", time.Minute)
				So(n, ShouldEqual, 2)
				n, _ = s.Incr(ctx, "c", time.Minute)
				So(n, ShouldEqual, 3)
			})

			Convey("Then expiry resets the counter", func() {
				clock.Advance(2 * time.Minute)
				n, _ = s.Incr(ctx, "c", time.Minute)
				So(n, ShouldEqual, 1)
			})
		})

		Convey("When a counter was initialized via Set", func() {
			So(s.Set(ctx, "c", "0", time.Minute), ShouldBeNil)
			n, err := s.Incr(ctx, "c", time.Minute)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)
		})
	})
}

func TestMemoryStore_SlideWindow(t *testing.T) {
	Convey("Given a memory store", t, func() {
		s, clock := newClockedStore()
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When sliding a 60s window repeatedly", func() {
			window := time.Minute

			Convey("Then each call counts the members before its own append", func() {
				c0, err := s.SlideWindow(ctx, "w", clock.Now(), window)
				So(err, ShouldBeNil)
				So(c0, ShouldEqual, 0)

				c1, _ := s.SlideWindow(ctx, "w", clock.Now(), window)
				So(c1, ShouldEqual, 1)

				c2, _ := s.SlideWindow(ctx, "w", clock.Now(), window)
				So(c2, ShouldEqual, 2)
			})

			Convey("Then members older than the window are trimmed", func() {
				_, _ = s.SlideWindow(ctx, "w", clock.Now(), window)
				_, _ = s.SlideWindow(ctx, "w", clock.Now(), window)

				clock.Advance(61 * time.Second)
				count, err := s.SlideWindow(ctx, "w", clock.Now(), window)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})
	})
}

func TestMemoryStore_Delete(t *testing.T) {
	Convey("Given a memory store with a value", t, func() {
		s, _ := newClockedStore()
		defer func() { _ = s.Close() }()
		ctx := context.Background()
		So(s.Set(ctx, "k", "v", 0), ShouldBeNil)

		Convey("When deleting it", func() {
			So(s.Delete(ctx, "k"), ShouldBeNil)
			_, found, _ := s.Get(ctx, "k")
			So(found, ShouldBeFalse)
		})

		Convey("When deleting an absent key", func() {
			So(s.Delete(ctx, "other"), ShouldBeNil)
		})
	})
}

func TestMemoryStore_Close(t *testing.T) {
	Convey("Given a closed memory store", t, func() {
		s, clock := newClockedStore()
		So(s.Close(), ShouldBeNil)
		ctx := context.Background()

		Convey("Then operations report ErrClosed", func() {
			_, _, err := s.Get(ctx, "k")
			So(err, ShouldEqual, store.ErrClosed)

			So(s.Set(ctx, "k", "v", 0), ShouldEqual, store.ErrClosed)

			_, err = s.SetNX(ctx, "k", "v", 0)
			So(err, ShouldEqual, store.ErrClosed)

			_, err = s.Incr(ctx, "k", 0)
			So(err, ShouldEqual, store.ErrClosed)

			So(s.Delete(ctx, "k"), ShouldEqual, store.ErrClosed)

			_, err = s.SlideWindow(ctx, "k", clock.Now(), time.Minute)
			So(err, ShouldEqual, store.ErrClosed)
		})

		Convey("Then closing again is a no-op", func() {
			So(s.Close(), ShouldBeNil)
		})
	})
}
