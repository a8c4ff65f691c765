package dedupe_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	dedupe "github.com/okian/rosterlens/internal/domain/dedupe"
	. "github.com/smartystreets/goconvey/convey"
)

func TestCoalescer(t *testing.T) {
	Convey("Given a new coalescer", t, func() {
		ctx := context.Background()
		c := dedupe.NewCoalescer()

		Convey("Then it starts empty", func() {
			So(c.Size(), ShouldEqual, 0)
			So(c.Rows(ctx, "nobody"), ShouldBeEmpty)
		})

		Convey("When the same username appears on several rows", func() {
			first := c.SeenAndRecord(ctx, "asha", 0)
			second := c.SeenAndRecord(ctx, "asha", 3)
			other := c.SeenAndRecord(ctx, "ben", 1)

			Convey("Then only the first sighting needs a lookup", func() {
				So(first, ShouldBeFalse)
				So(second, ShouldBeTrue)
				So(other, ShouldBeFalse)
				So(c.Size(), ShouldEqual, 2)
			})

			Convey("And every row is filed under the username in order", func() {
				So(c.Rows(ctx, "asha"), ShouldResemble, []int{0, 3})
				So(c.Rows(ctx, "ben"), ShouldResemble, []int{1})
			})

			Convey("And the returned slice is a copy", func() {
				rows := c.Rows(ctx, "asha")
				rows[0] = 99
				So(c.Rows(ctx, "asha")[0], ShouldEqual, 0)
			})
		})

		Convey("When usernames differ only in case", func() {
			So(c.SeenAndRecord(ctx, "Asha", 0), ShouldBeFalse)
			So(c.SeenAndRecord(ctx, "asha", 1), ShouldBeFalse)

			folded := dedupe.NewCoalescer(dedupe.WithFoldCase(true))
			So(folded.SeenAndRecord(ctx, "Asha", 0), ShouldBeFalse)
			So(folded.SeenAndRecord(ctx, "asha", 1), ShouldBeTrue)
			So(folded.Rows(ctx, "ASHA"), ShouldResemble, []int{0, 1})
		})
	})
}

func TestCoalescerConcurrency(t *testing.T) {
	Convey("Given concurrent writers", t, func() {
		ctx := context.Background()
		c := dedupe.NewCoalescer()

		const writers = 20
		var wg sync.WaitGroup
		var mu sync.Mutex
		fresh := 0
		for i := 0; i < writers; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				if !c.SeenAndRecord(ctx, fmt.Sprintf("user-%d", i%5), i) {
					mu.Lock()
					fresh++
					mu.Unlock()
				}
			}(i)
		}
		wg.Wait()

		Convey("Then each username is fresh exactly once", func() {
			So(fresh, ShouldEqual, 5)
			So(c.Size(), ShouldEqual, 5)
			So(len(c.Rows(ctx, "user-0")), ShouldEqual, 4)
		})
	})
}
