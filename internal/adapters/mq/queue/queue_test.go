package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/aclguard/internal/adapters/mq/queue"
	"github.com/okian/aclguard/internal/domain/model"
	"github.com/smartystreets/goconvey/convey"
)

func req(id, athlete string) model.AssessmentRequest {
	return model.AssessmentRequest{RequestID: id, AthleteID: athlete, Requested: time.Now()}
}

func recv(t *testing.T, ch <-chan model.AssessmentRequest) (model.AssessmentRequest, bool) {
	t.Helper()
	select {
	case r, ok := <-ch:
		return r, ok
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for request")
		return model.AssessmentRequest{}, false
	}
}

func TestInMemoryQueue(t *testing.T) {
	convey.Convey("Given an in-memory queue", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		q := queue.NewInMemoryQueue(queue.WithCapacity(2))

		convey.Convey("It starts empty and open", func() {
			convey.So(q.Len(ctx), convey.ShouldEqual, 0)
			convey.So(q.IsClosed(), convey.ShouldBeFalse)
		})

		convey.Convey("Enqueued requests come out in order", func() {
			convey.So(q.Enqueue(ctx, req("r1", "a1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, req("r2", "a2")), convey.ShouldBeNil)
			convey.So(q.Len(ctx), convey.ShouldEqual, 2)

			out := q.Dequeue(ctx)
			first, ok := recv(t, out)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(first.RequestID, convey.ShouldEqual, "r1")
			second, _ := recv(t, out)
			convey.So(second.RequestID, convey.ShouldEqual, "r2")
		})

		convey.Convey("A full queue rejects with ErrFull", func() {
			convey.So(q.Enqueue(ctx, req("r1", "a1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, req("r2", "a2")), convey.ShouldBeNil)
			err := q.Enqueue(ctx, req("r3", "a3"))
			convey.So(errors.Is(err, queue.ErrFull), convey.ShouldBeTrue)
		})

		convey.Convey("A pending athlete is coalesced", func() {
			convey.So(q.Enqueue(ctx, req("r1", "a1")), convey.ShouldBeNil)
			convey.So(q.Enqueue(ctx, req("r2", "a1")), convey.ShouldBeNil)
			convey.So(q.Len(ctx), convey.ShouldEqual, 1)

			convey.Convey("and can be queued again once picked up", func() {
				out := q.Dequeue(ctx)
				r, _ := recv(t, out)
				convey.So(r.RequestID, convey.ShouldEqual, "r1")
				convey.So(q.Enqueue(ctx, req("r3", "a1")), convey.ShouldBeNil)
				r, _ = recv(t, out)
				convey.So(r.RequestID, convey.ShouldEqual, "r3")
			})
		})

		convey.Convey("A cancelled context is rejected", func() {
			cctx, ccancel := context.WithCancel(ctx)
			ccancel()
			err := q.Enqueue(cctx, req("r1", "a1"))
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})

		convey.Convey("Close drains the backlog then closes the channel", func() {
			convey.So(q.Enqueue(ctx, req("r1", "a1")), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			convey.So(q.Close(), convey.ShouldBeNil)
			convey.So(q.IsClosed(), convey.ShouldBeTrue)
			convey.So(errors.Is(q.Enqueue(ctx, req("r2", "a2")), queue.ErrClosed), convey.ShouldBeTrue)

			out := q.Dequeue(ctx)
			r, ok := recv(t, out)
			convey.So(ok, convey.ShouldBeTrue)
			convey.So(r.RequestID, convey.ShouldEqual, "r1")
			_, ok = recv(t, out)
			convey.So(ok, convey.ShouldBeFalse)
		})

		convey.Convey("Every consumer shares one channel", func() {
			convey.So(q.Dequeue(ctx), convey.ShouldEqual, q.Dequeue(ctx))
		})
	})
}
