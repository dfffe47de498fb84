package challenge

import "github.com/soundvine/rewards/internal/domain/model"

func steps(n int) *int { return &n }

// Catalog is the static challenge catalog upserted into the ledger at
// startup. Amounts are reward units; starting blocks gate retroactive
// credit when a challenge launches mid-chain.
func Catalog() []model.ChallengeDefinition {
	return []model.ChallengeDefinition{
		{ID: "track-upload-count", StepCount: steps(3), Amount: 1, Active: true, StartingBlock: 0},
		{ID: "playlist-count", StepCount: steps(3), Amount: 1, Active: true, StartingBlock: 0},
		{ID: "fan-base", StepCount: steps(50), Amount: 2, Active: true, StartingBlock: 0},
		{ID: "first-playlist", StepCount: steps(1), Amount: 1, Active: true, StartingBlock: 0},
		{ID: "first-repost", StepCount: steps(1), Amount: 1, Active: true, StartingBlock: 0},
		{ID: "first-save", StepCount: steps(1), Amount: 1, Active: true, StartingBlock: 0},
		{ID: "referrals", Amount: 1, Active: true, StartingBlock: 0},
		{ID: "trending-track-top5", Amount: 10, Active: true, StartingBlock: 0},
		{ID: "trending-playlist-top5", Amount: 10, Active: true, StartingBlock: 0},
	}
}
