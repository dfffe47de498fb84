package queue_test

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/soundvine/rewards/internal/adapters/mq/queue"
	"github.com/soundvine/rewards/internal/adapters/repository"
)

func payloads(ss ...string) [][]byte {
	out := make([][]byte, len(ss))
	for i, s := range ss {
		out[i] = []byte(s)
	}
	return out
}

func testQueue(t *testing.T, name string, open func() queue.Queue) {
	t.Helper()

	Convey("Given an empty "+name, t, func() {
		q := open()
		ctx := context.Background()

		Convey("Then head and len report empty", func() {
			entries, err := q.Head(ctx, 10)
			So(err, ShouldBeNil)
			So(entries, ShouldBeEmpty)
			n, err := q.Len(ctx)
			So(err, ShouldBeNil)
			So(n, ShouldEqual, 0)
		})

		Convey("When appending three payloads", func() {
			So(q.Append(ctx, payloads("a", "b", "c")), ShouldBeNil)

			Convey("Then head returns them in append order without removal", func() {
				entries, err := q.Head(ctx, 10)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 3)
				So(string(entries[0].Payload), ShouldEqual, "a")
				So(string(entries[1].Payload), ShouldEqual, "b")
				So(string(entries[2].Payload), ShouldEqual, "c")
				So(entries[0].ID, ShouldBeLessThan, entries[1].ID)
				So(entries[1].ID, ShouldBeLessThan, entries[2].ID)

				again, err := q.Head(ctx, 10)
				So(err, ShouldBeNil)
				So(again, ShouldHaveLength, 3)
			})

			Convey("And head honors the max argument", func() {
				entries, err := q.Head(ctx, 2)
				So(err, ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(string(entries[0].Payload), ShouldEqual, "a")
			})

			Convey("And trimming through the second entry leaves the third", func() {
				entries, _ := q.Head(ctx, 2)
				So(q.Trim(ctx, entries[1].ID), ShouldBeNil)

				rest, err := q.Head(ctx, 10)
				So(err, ShouldBeNil)
				So(rest, ShouldHaveLength, 1)
				So(string(rest[0].Payload), ShouldEqual, "c")
			})

			Convey("And appending after a trim keeps FIFO order", func() {
				entries, _ := q.Head(ctx, 3)
				So(q.Trim(ctx, entries[2].ID), ShouldBeNil)
				So(q.Append(ctx, payloads("d")), ShouldBeNil)

				rest, err := q.Head(ctx, 10)
				So(err, ShouldBeNil)
				So(rest, ShouldHaveLength, 1)
				So(string(rest[0].Payload), ShouldEqual, "d")
				So(rest[0].ID, ShouldBeGreaterThan, entries[2].ID)
			})
		})

		Convey("When appending nothing", func() {
			So(q.Append(ctx, nil), ShouldBeNil)
			n, _ := q.Len(ctx)
			So(n, ShouldEqual, 0)
		})
	})
}

func TestInMemoryQueue(t *testing.T) {
	testQueue(t, "in-memory queue", func() queue.Queue {
		return queue.NewInMemoryQueue()
	})
}

func TestGormQueue(t *testing.T) {
	testQueue(t, "relational queue", func() queue.Queue {
		db, err := repository.Open(":memory:")
		So(err, ShouldBeNil)
		q, err := queue.NewGormQueue(db)
		So(err, ShouldBeNil)
		return q
	})
}
