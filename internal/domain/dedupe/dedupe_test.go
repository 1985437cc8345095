package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/aclguard/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestInMemoryDeduper(t *testing.T) {
	ctx := context.Background()

	Convey("Given a new InMemoryDeduper", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(3))

		Convey("It starts empty", func() {
			So(d.Size(), ShouldEqual, 0)
		})

		Convey("When a key is reserved", func() {
			status, resp := d.Reserve(ctx, "k1")
			So(status, ShouldEqual, dedupe.StatusNew)
			So(resp, ShouldBeNil)
			So(d.Size(), ShouldEqual, 1)

			Convey("Then a second reservation sees it pending", func() {
				status, _ := d.Reserve(ctx, "k1")
				So(status, ShouldEqual, dedupe.StatusPending)
			})

			Convey("Then completing it stores the response", func() {
				d.Complete(ctx, "k1", []byte(`{"accepted":3}`))
				status, resp := d.Reserve(ctx, "k1")
				So(status, ShouldEqual, dedupe.StatusDone)
				So(string(resp), ShouldEqual, `{"accepted":3}`)
			})

			Convey("Then releasing it allows a retry", func() {
				d.Release(ctx, "k1")
				So(d.Size(), ShouldEqual, 0)
				status, _ := d.Reserve(ctx, "k1")
				So(status, ShouldEqual, dedupe.StatusNew)
			})
		})

		Convey("When the bound is reached the oldest completed key goes first", func() {
			d.Reserve(ctx, "pending")
			for _, k := range []string{"a", "b"} {
				d.Reserve(ctx, k)
				d.Complete(ctx, k, []byte(k))
			}
			status, _ := d.Reserve(ctx, "c")
			So(status, ShouldEqual, dedupe.StatusNew)
			So(d.Size(), ShouldEqual, 3)

			status, _ = d.Reserve(ctx, "pending")
			So(status, ShouldEqual, dedupe.StatusPending)
			status, _ = d.Reserve(ctx, "b")
			So(status, ShouldEqual, dedupe.StatusDone)
		})

		Convey("Keys are scoped per session", func() {
			So(dedupe.Key("s1", "k"), ShouldNotEqual, dedupe.Key("s2", "k"))
		})
	})

	Convey("Given an unbounded deduper under concurrent reservations", t, func() {
		d := dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(0))
		var (
			wg  sync.WaitGroup
			mu  sync.Mutex
			won = map[string]int{}
		)
		for g := 0; g < 8; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < 100; i++ {
					key := fmt.Sprintf("key-%d", i)
					if status, _ := d.Reserve(ctx, key); status == dedupe.StatusNew {
						mu.Lock()
						won[key]++
						mu.Unlock()
					}
				}
			}()
		}
		wg.Wait()

		So(d.Size(), ShouldEqual, 100)
		So(len(won), ShouldEqual, 100)
		for _, n := range won {
			So(n, ShouldEqual, 1)
		}
	})
}
