package trending_test

import (
	"context"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/internal/domain/trending"
)

// staticSource serves a fixed item set for generator tests and records what
// the generator asked for.
type staticSource struct {
	items       []model.ScoredItem
	gotType     model.TrendingType
	gotCategory string
}

func (s *staticSource) WindowedItems(_ context.Context, typ model.TrendingType, category string, _ time.Duration, _ time.Time) ([]model.ScoredItem, error) {
	s.gotType = typ
	s.gotCategory = category
	out := make([]model.ScoredItem, len(s.items))
	copy(out, s.items)
	return out, nil
}

func item(id, owner int64, listens float64, followers int64, createdAt time.Time) model.ScoredItem {
	return model.ScoredItem{
		ItemID:             id,
		OwnerID:            owner,
		Listens:            listens,
		OwnerFollowerCount: followers,
		Karma:              1,
		CreatedAt:          createdAt,
	}
}

func TestStrategyScore(t *testing.T) {
	Convey("Given the v1 strategy", t, func() {
		strategy, err := trending.Lookup("v1")
		So(err, ShouldBeNil)

		at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		window := model.RangeWeek.Window()

		Convey("When the owner is below the follower floor", func() {
			low := item(1, 10, 1_000_000, 199, at)
			So(strategy.Score(low, window, at), ShouldEqual, 0)
		})

		Convey("When the item is fresh", func() {
			fresh := item(1, 10, 100, 200, at)
			So(strategy.Score(fresh, window, at), ShouldEqual, 100)
		})

		Convey("When the item is exactly as old as the window", func() {
			edge := item(1, 10, 100, 200, at.Add(-window))
			So(strategy.Score(edge, window, at), ShouldEqual, 100)
		})

		Convey("When the item is slightly older than the window", func() {
			stale := item(1, 10, 100, 200, at.Add(-2*window))
			score := strategy.Score(stale, window, at)
			So(score, ShouldBeLessThan, 100)
			So(score, ShouldBeGreaterThanOrEqualTo, 100.0/100_000)
		})

		Convey("When the item is 400 days old with a 7 day window", func() {
			ancient := item(1, 10, 100, 200, at.Add(-400*24*time.Hour))
			// Deep past hits the 1/Q floor: 100 / 100000 = 0.001.
			So(strategy.Score(ancient, window, at), ShouldAlmostEqual, 0.001, 1e-9)
		})

		Convey("When karma is zero", func() {
			dead := item(1, 10, 100, 200, at)
			dead.Karma = 0
			So(strategy.Score(dead, window, at), ShouldEqual, 0)
		})
	})
}

func TestGeneratorDeterminism(t *testing.T) {
	Convey("Given a generator over a fixed item set", t, func() {
		at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
		source := &staticSource{items: []model.ScoredItem{
			item(3, 30, 50, 500, at),
			item(1, 10, 80, 500, at),
			item(5, 50, 50, 500, at),
			item(2, 20, 80, 500, at),
			item(4, 40, 10, 100, at), // below floor, scores zero
		}}
		gen := trending.NewGenerator(source)
		req := trending.Request{
			Type:    model.TrendingTracks,
			Version: "v1",
			Range:   model.RangeWeek,
			Limit:   10,
			At:      at,
		}

		Convey("When generating twice", func() {
			first, err1 := gen.Generate(context.Background(), req)
			second, err2 := gen.Generate(context.Background(), req)
			So(err1, ShouldBeNil)
			So(err2, ShouldBeNil)

			Convey("Then both runs produce identical ordered lists", func() {
				So(second.ItemIDs, ShouldResemble, first.ItemIDs)
			})

			Convey("And ties break by item id descending", func() {
				// 2 and 1 tie at 80 listens, 5 and 3 tie at 50.
				So(first.ItemIDs, ShouldResemble, []int64{2, 1, 5, 3, 4})
			})
		})

		Convey("When the request names a type and category", func() {
			req.Type = model.TrendingPlaylists
			req.Category = "electronic"
			rank, err := gen.Generate(context.Background(), req)
			So(err, ShouldBeNil)

			Convey("Then both reach the source and stamp the result", func() {
				So(source.gotType, ShouldEqual, model.TrendingPlaylists)
				So(source.gotCategory, ShouldEqual, "electronic")
				So(rank.Type, ShouldEqual, model.TrendingPlaylists)
				So(rank.Category, ShouldEqual, "electronic")
			})
		})

		Convey("When the limit truncates the ranking", func() {
			req.Limit = 2
			rank, err := gen.Generate(context.Background(), req)
			So(err, ShouldBeNil)
			So(rank.ItemIDs, ShouldResemble, []int64{2, 1})
			So(rank.OwnerIDs, ShouldResemble, []int64{20, 10})
		})

		Convey("When the version is unknown", func() {
			req.Version = "v999"
			_, err := gen.Generate(context.Background(), req)
			So(err, ShouldNotBeNil)
		})

		Convey("When the reference time is missing", func() {
			req.At = time.Time{}
			_, err := gen.Generate(context.Background(), req)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestPeriodKey(t *testing.T) {
	Convey("Given a reference time", t, func() {
		at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)

		Convey("Then the weekly key is the ISO year-week", func() {
			So(trending.PeriodKey(model.RangeWeek, at), ShouldEqual, "2026-36")
		})

		Convey("And the monthly key is year-month", func() {
			So(trending.PeriodKey(model.RangeMonth, at), ShouldEqual, "2026-08")
		})

		Convey("And the yearly key is the year", func() {
			So(trending.PeriodKey(model.RangeYear, at), ShouldEqual, "2026")
		})
	})
}
