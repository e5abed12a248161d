package store_test

import (
	"context"
	"testing"
	"time"

	store "github.com/hotlabel/hotlabel/internal/adapters/store"
	. "github.com/smartystreets/goconvey/convey"
)

func TestBadgerStore(t *testing.T) {
	Convey("Given an in-memory badger store", t, func() {
		s, err := store.NewBadgerStoreInMemory()
		So(err, ShouldBeNil)
		defer func() { _ = s.Close() }()
		ctx := context.Background()

		Convey("When setting and getting a value", func() {
			So(s.Set(ctx, "k", "v", time.Minute), ShouldBeNil)

			v, found, err := s.Get(ctx, "k")
			So(err, ShouldBeNil)
			So(found, ShouldBeTrue)
			So(v, ShouldEqual, "v")
		})

		Convey("When getting an absent key", func() {
			_, found, err := s.Get(ctx, "missing")
			So(err, ShouldBeNil)
			So(found, ShouldBeFalse)
		})

		Convey("When writing with SetNX", func() {
			written, err := s.SetNX(ctx, "k", "first", time.Minute)
			So(err, ShouldBeNil)
			So(written, ShouldBeTrue)

			written, err = s.SetNX(ctx, "k", "second", time.Minute)
			So(err, ShouldBeNil)
			So(written, ShouldBeFalse)

			v, _, _ := s.Get(ctx, "k")
			So(v, ShouldEqual, "first")
		})

		Convey("When incrementing a counter", func() {
			n, err := s.Incr(ctx, "c", time.Minute)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 1)

			n, err = s.Incr(ctx, "c", time.Minute)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 2)
		})

		Convey("When sliding a window", func() {
			now := time.Now()

			c0, err := s.SlideWindow(ctx, "w", now, time.Minute)
			So(err, ShouldBeNil)
			So(c0, ShouldEqual, 0)

			c1, err := s.SlideWindow(ctx, "w", now, time.Minute)
			So(err, ShouldBeNil)
			So(c1, ShouldEqual, 1)

			Convey("Then members outside the window are trimmed", func() {
				later := now.Add(2 * time.Minute)
				count, err := s.SlideWindow(ctx, "w", later, time.Minute)
				So(err, ShouldBeNil)
				So(count, ShouldEqual, 0)
			})
		})

		Convey("When deleting a key", func() {
			So(s.Set(ctx, "k", "v", 0), ShouldBeNil)
			So(s.Delete(ctx, "k"), ShouldBeNil)
			_, found, _ := s.Get(ctx, "k")
			So(found, ShouldBeFalse)
		})
	})
}
