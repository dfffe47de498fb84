package challenge_test

import (
	"context"
	"os"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/soundvine/rewards/internal/domain/challenge"
	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(); err != nil {
		os.Exit(1)
	}
	os.Exit(m.Run())
}

// fakeLedger is an in-memory Ledger for manager tests.
type fakeLedger struct {
	defs map[string]model.ChallengeDefinition
	rows map[string]map[model.Key]model.UserChallenge
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		defs: make(map[string]model.ChallengeDefinition),
		rows: make(map[string]map[model.Key]model.UserChallenge),
	}
}

func (f *fakeLedger) UpsertDefinitions(_ context.Context, defs []model.ChallengeDefinition) error {
	for _, d := range defs {
		f.defs[d.ID] = d
	}
	return nil
}

func (f *fakeLedger) Definition(_ context.Context, id string) (model.ChallengeDefinition, error) {
	return f.defs[id], nil
}

func (f *fakeLedger) Rows(_ context.Context, challengeID string, keys []model.Key) (map[model.Key]model.UserChallenge, error) {
	out := make(map[model.Key]model.UserChallenge)
	for _, k := range keys {
		if row, ok := f.rows[challengeID][k]; ok {
			out[k] = row
		}
	}
	return out, nil
}

func (f *fakeLedger) UpsertRows(_ context.Context, rows []model.UserChallenge) error {
	for _, r := range rows {
		byKey, ok := f.rows[r.ChallengeID]
		if !ok {
			byKey = make(map[model.Key]model.UserChallenge)
			f.rows[r.ChallengeID] = byKey
		}
		byKey[r.RowKey()] = r
	}
	return nil
}

func (f *fakeLedger) CompletedUndisbursed(_ context.Context, limit int) ([]model.UserChallenge, error) {
	var out []model.UserChallenge
	for _, byKey := range f.rows {
		for _, r := range byKey {
			if r.IsComplete && !r.IsDisbursed && len(out) < limit {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

func (f *fakeLedger) row(challengeID string, key model.Key) (model.UserChallenge, bool) {
	r, ok := f.rows[challengeID][key]
	return r, ok
}

// fakeAggs recounts uploads from a fixed list of (owner, block) pairs.
type fakeAggs struct {
	uploads   map[int64][]int64 // owner -> upload block numbers
	followers map[int64]int
	playlists map[int64]int
}

func (f *fakeAggs) UploadCountSince(_ context.Context, userID, sinceBlock int64) (int, error) {
	n := 0
	for _, b := range f.uploads[userID] {
		if b >= sinceBlock {
			n++
		}
	}
	return n, nil
}

func (f *fakeAggs) FollowerCount(_ context.Context, userID int64) (int, error) {
	return f.followers[userID], nil
}

func (f *fakeAggs) PlaylistCount(_ context.Context, userID int64) (int, error) {
	return f.playlists[userID], nil
}

func uploadEvent(userID, block, itemID int64) model.Event {
	return model.Event{
		Kind:        model.KindContentUpload,
		UserID:      userID,
		BlockNumber: block,
		Extra:       model.UploadExtra{ItemID: itemID},
	}
}

func TestUploadCountManager(t *testing.T) {
	Convey("Given an upload-count challenge starting at block 15 with step_count 2", t, func() {
		ledger := newFakeLedger()
		aggs := &fakeAggs{uploads: map[int64][]int64{1: {10, 20, 30}}}
		def := model.ChallengeDefinition{
			ID:            "track-upload-count",
			StepCount:     steps(2),
			Amount:        1,
			Active:        true,
			StartingBlock: 15,
		}
		mgr, err := challenge.NewManager(def, challenge.NewUploadCountUpdater(aggs), ledger)
		So(err, ShouldBeNil)

		key := model.Key{UserID: 1, Specifier: challenge.SingleSpecifier}
		events := []model.Event{
			uploadEvent(1, 10, 100),
			uploadEvent(1, 20, 101),
			uploadEvent(1, 30, 102),
		}

		Convey("When processing uploads at blocks 10, 20 and 30", func() {
			So(mgr.Process(context.Background(), events), ShouldBeNil)

			Convey("Then only uploads at or after block 15 count", func() {
				row, ok := ledger.row("track-upload-count", key)
				So(ok, ShouldBeTrue)
				So(row.CurrentStepCount, ShouldEqual, 2)
				So(row.IsComplete, ShouldBeTrue)
				So(row.CompletedBlocknumber, ShouldNotBeNil)
				So(*row.CompletedBlocknumber, ShouldEqual, 30)
			})

			Convey("And replaying the same batch changes nothing", func() {
				before, _ := ledger.row("track-upload-count", key)
				So(mgr.Process(context.Background(), events), ShouldBeNil)
				after, _ := ledger.row("track-upload-count", key)
				So(after, ShouldResemble, before)
			})

			Convey("And a lower recount cannot regress the completed row", func() {
				// A later indexing pass discovers the uploads were deleted.
				aggs.uploads[1] = nil
				So(mgr.Process(context.Background(), events), ShouldBeNil)
				row, _ := ledger.row("track-upload-count", key)
				So(row.CurrentStepCount, ShouldEqual, 2)
				So(row.IsComplete, ShouldBeTrue)
			})
		})

		Convey("When processing an event below the starting block only", func() {
			So(mgr.Process(context.Background(), []model.Event{uploadEvent(1, 10, 100)}), ShouldBeNil)

			Convey("Then no row is written", func() {
				_, ok := ledger.row("track-upload-count", key)
				So(ok, ShouldBeFalse)
			})
		})

		Convey("When the definition is inactive", func() {
			inactive := def
			inactive.Active = false
			mgr2, err := challenge.NewManager(inactive, challenge.NewUploadCountUpdater(aggs), ledger)
			So(err, ShouldBeNil)
			So(mgr2.Process(context.Background(), events), ShouldBeNil)
			_, ok := ledger.row("track-upload-count", key)
			So(ok, ShouldBeFalse)
		})
	})
}

func TestStepCountMonotonicity(t *testing.T) {
	Convey("Given a counting challenge in progress", t, func() {
		ledger := newFakeLedger()
		aggs := &fakeAggs{uploads: map[int64][]int64{1: {20, 30}}}
		def := model.ChallengeDefinition{
			ID:            "track-upload-count",
			StepCount:     steps(5),
			Active:        true,
			StartingBlock: 0,
		}
		mgr, err := challenge.NewManager(def, challenge.NewUploadCountUpdater(aggs), ledger)
		So(err, ShouldBeNil)

		key := model.Key{UserID: 1, Specifier: challenge.SingleSpecifier}
		So(mgr.Process(context.Background(), []model.Event{uploadEvent(1, 30, 101)}), ShouldBeNil)
		row, _ := ledger.row("track-upload-count", key)
		So(row.CurrentStepCount, ShouldEqual, 2)
		So(row.IsComplete, ShouldBeFalse)

		Convey("When a stale recount would lower the step count", func() {
			aggs.uploads[1] = []int64{20}
			So(mgr.Process(context.Background(), []model.Event{uploadEvent(1, 31, 102)}), ShouldBeNil)

			Convey("Then the step count does not decrease", func() {
				row, _ := ledger.row("track-upload-count", key)
				So(row.CurrentStepCount, ShouldEqual, 2)
			})
		})

		Convey("When more uploads land", func() {
			aggs.uploads[1] = []int64{20, 30, 40, 50, 60}
			So(mgr.Process(context.Background(), []model.Event{uploadEvent(1, 60, 105)}), ShouldBeNil)

			Convey("Then the challenge completes", func() {
				row, _ := ledger.row("track-upload-count", key)
				So(row.CurrentStepCount, ShouldEqual, 5)
				So(row.IsComplete, ShouldBeTrue)
			})
		})
	})
}

func TestPlaylistCountChallenge(t *testing.T) {
	Convey("Given the playlist-count challenge with a 3 playlist target", t, func() {
		ledger := newFakeLedger()
		aggs := &fakeAggs{playlists: map[int64]int{7: 2}}
		def := model.ChallengeDefinition{ID: "playlist-count", StepCount: steps(3), Active: true}
		mgr, err := challenge.NewManager(def, challenge.NewPlaylistCountUpdater(aggs), ledger)
		So(err, ShouldBeNil)

		create := model.Event{Kind: model.KindPlaylistCreate, UserID: 7, BlockNumber: 12}
		key := model.Key{UserID: 7, Specifier: challenge.SingleSpecifier}

		Convey("When a create event arrives below the target", func() {
			So(mgr.Process(context.Background(), []model.Event{create}), ShouldBeNil)
			row, ok := ledger.row("playlist-count", key)
			So(ok, ShouldBeTrue)
			So(row.CurrentStepCount, ShouldEqual, 2)
			So(row.IsComplete, ShouldBeFalse)

			Convey("And the recount reaching the target completes it", func() {
				aggs.playlists[7] = 3
				next := create
				next.BlockNumber = 13
				So(mgr.Process(context.Background(), []model.Event{next}), ShouldBeNil)
				row, _ := ledger.row("playlist-count", key)
				So(row.CurrentStepCount, ShouldEqual, 3)
				So(row.IsComplete, ShouldBeTrue)
				So(*row.CompletedBlocknumber, ShouldEqual, 13)
			})

			Convey("And a deletion pass lowering the count does not regress", func() {
				aggs.playlists[7] = 1
				next := create
				next.BlockNumber = 14
				So(mgr.Process(context.Background(), []model.Event{next}), ShouldBeNil)
				row, _ := ledger.row("playlist-count", key)
				So(row.CurrentStepCount, ShouldEqual, 2)
			})
		})

		Convey("When the definition lacks step_count", func() {
			bad := model.ChallengeDefinition{ID: "playlist-count", Active: true}
			_, err := challenge.NewManager(bad, challenge.NewPlaylistCountUpdater(aggs), ledger)
			So(err, ShouldNotBeNil)
		})
	})
}

func TestBooleanChallenge(t *testing.T) {
	Convey("Given a first-playlist challenge", t, func() {
		ledger := newFakeLedger()
		def := model.ChallengeDefinition{ID: "first-playlist", StepCount: steps(1), Active: true}
		mgr, err := challenge.NewManager(def, challenge.NewBooleanUpdater("first-playlist", model.KindPlaylistCreate), ledger)
		So(err, ShouldBeNil)

		e := model.Event{Kind: model.KindPlaylistCreate, UserID: 7, BlockNumber: 42}
		key := model.Key{UserID: 7, Specifier: challenge.SingleSpecifier}

		Convey("When the triggering event arrives", func() {
			So(mgr.Process(context.Background(), []model.Event{e}), ShouldBeNil)
			row, ok := ledger.row("first-playlist", key)
			So(ok, ShouldBeTrue)
			So(row.IsComplete, ShouldBeTrue)
			So(*row.CompletedBlocknumber, ShouldEqual, 42)

			Convey("And a replay is a no-op", func() {
				before, _ := ledger.row("first-playlist", key)
				So(mgr.Process(context.Background(), []model.Event{e}), ShouldBeNil)
				after, _ := ledger.row("first-playlist", key)
				So(after, ShouldResemble, before)
			})
		})
	})
}

func TestReferralChallenge(t *testing.T) {
	Convey("Given the referrals challenge", t, func() {
		ledger := newFakeLedger()
		def := model.ChallengeDefinition{ID: "referrals", Active: true}
		mgr, err := challenge.NewManager(def, challenge.NewReferralUpdater(), ledger)
		So(err, ShouldBeNil)

		Convey("When one user refers two signups", func() {
			events := []model.Event{
				{Kind: model.KindReferralSignup, UserID: 1, BlockNumber: 5, Extra: model.ReferralExtra{ReferredUserID: 200}},
				{Kind: model.KindReferralSignup, UserID: 1, BlockNumber: 6, Extra: model.ReferralExtra{ReferredUserID: 201}},
			}
			So(mgr.Process(context.Background(), events), ShouldBeNil)

			Convey("Then each referral has its own completed row", func() {
				first, ok1 := ledger.row("referrals", model.Key{UserID: 1, Specifier: "200"})
				second, ok2 := ledger.row("referrals", model.Key{UserID: 1, Specifier: "201"})
				So(ok1, ShouldBeTrue)
				So(ok2, ShouldBeTrue)
				So(first.IsComplete, ShouldBeTrue)
				So(second.IsComplete, ShouldBeTrue)
			})
		})
	})
}

func TestTrendingChallenge(t *testing.T) {
	Convey("Given the trending-track-top5 challenge", t, func() {
		ledger := newFakeLedger()
		def := model.ChallengeDefinition{ID: "trending-track-top5", Active: true}
		mgr, err := challenge.NewManager(def, challenge.NewTrendingUpdater("trending-track-top5", "tracks", 5), ledger)
		So(err, ShouldBeNil)

		rankEvent := func(user int64, rank int, period string) model.Event {
			return model.Event{
				Kind:   model.KindTrendingRank,
				UserID: user,
				Extra:  model.TrendingRankExtra{Rank: rank, ItemID: 9, Type: "tracks", Period: period},
			}
		}

		Convey("When a user lands rank 3 in week 2026-35", func() {
			So(mgr.Process(context.Background(), []model.Event{rankEvent(4, 3, "2026-35")}), ShouldBeNil)
			row, ok := ledger.row("trending-track-top5", model.Key{UserID: 4, Specifier: "2026-35"})
			So(ok, ShouldBeTrue)
			So(row.IsComplete, ShouldBeTrue)

			Convey("And winning a later week earns a second row", func() {
				So(mgr.Process(context.Background(), []model.Event{rankEvent(4, 1, "2026-36")}), ShouldBeNil)
				_, again := ledger.row("trending-track-top5", model.Key{UserID: 4, Specifier: "2026-36"})
				So(again, ShouldBeTrue)
			})
		})

		Convey("When the rank is outside the reward range", func() {
			So(mgr.Process(context.Background(), []model.Event{rankEvent(4, 6, "2026-35")}), ShouldBeNil)
			_, ok := ledger.row("trending-track-top5", model.Key{UserID: 4, Specifier: "2026-35"})
			So(ok, ShouldBeFalse)
		})

		Convey("When the event is for a different trending type", func() {
			e := model.Event{
				Kind:   model.KindTrendingRank,
				UserID: 4,
				Extra:  model.TrendingRankExtra{Rank: 1, ItemID: 9, Type: "playlists", Period: "2026-35"},
			}
			So(mgr.Process(context.Background(), []model.Event{e}), ShouldBeNil)
			_, ok := ledger.row("trending-track-top5", model.Key{UserID: 4, Specifier: "2026-35"})
			So(ok, ShouldBeFalse)
		})
	})
}

func TestFanBaseCreditsFollowee(t *testing.T) {
	Convey("Given the fan-base challenge with a 2 follower target", t, func() {
		ledger := newFakeLedger()
		aggs := &fakeAggs{followers: map[int64]int{9: 2}}
		def := model.ChallengeDefinition{ID: "fan-base", StepCount: steps(2), Active: true}
		mgr, err := challenge.NewManager(def, challenge.NewFanBaseUpdater(aggs), ledger)
		So(err, ShouldBeNil)

		Convey("When user 3 follows user 9", func() {
			e := model.Event{
				Kind:        model.KindFollow,
				UserID:      3,
				BlockNumber: 8,
				Extra:       model.FollowExtra{FolloweeID: 9},
			}
			So(mgr.Process(context.Background(), []model.Event{e}), ShouldBeNil)

			Convey("Then the followee's row completes, not the follower's", func() {
				row, ok := ledger.row("fan-base", model.Key{UserID: 9, Specifier: challenge.SingleSpecifier})
				So(ok, ShouldBeTrue)
				So(row.IsComplete, ShouldBeTrue)
				_, followerHasRow := ledger.row("fan-base", model.Key{UserID: 3, Specifier: challenge.SingleSpecifier})
				So(followerHasRow, ShouldBeFalse)
			})
		})
	})
}

func TestConfigurationErrors(t *testing.T) {
	Convey("Given a counting definition without step_count", t, func() {
		ledger := newFakeLedger()
		aggs := &fakeAggs{}
		def := model.ChallengeDefinition{ID: "track-upload-count", Active: true}

		Convey("Then manager construction fails loudly", func() {
			_, err := challenge.NewManager(def, challenge.NewUploadCountUpdater(aggs), ledger)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, "step_count")
		})
	})

	Convey("Given a definition wired to the wrong updater", t, func() {
		ledger := newFakeLedger()
		def := model.ChallengeDefinition{ID: "first-save", Active: true}
		_, err := challenge.NewManager(def, challenge.NewReferralUpdater(), ledger)
		So(err, ShouldNotBeNil)
	})
}

func steps(n int) *int { return &n }
