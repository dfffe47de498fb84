package challenge

import (
	"context"

	"github.com/soundvine/rewards/internal/domain/model"
)

// TrendingUpdater completes when the trending job reports the user's item in
// the top reward ranks for a period. The period key is the specifier, so the
// same user can win the same challenge again in a later period.
type TrendingUpdater struct {
	id          string
	trendType   string
	rewardRanks int
}

// NewTrendingUpdater creates a ranked updater for one trending type.
// rewardRanks is how many top positions earn the reward.
func NewTrendingUpdater(id, trendType string, rewardRanks int) *TrendingUpdater {
	return &TrendingUpdater{id: id, trendType: trendType, rewardRanks: rewardRanks}
}

func (u *TrendingUpdater) ChallengeID() string { return u.id }

func (u *TrendingUpdater) Kinds() []model.EventKind {
	return []model.EventKind{model.KindTrendingRank}
}

func (u *TrendingUpdater) Keys(e model.Event) []model.Key {
	extra, ok := e.Extra.(model.TrendingRankExtra)
	if !ok || extra.Type != u.trendType {
		return nil
	}
	if extra.Rank <= 0 || extra.Rank > u.rewardRanks {
		return nil
	}
	return []model.Key{{UserID: e.UserID, Specifier: extra.Period}}
}

func (u *TrendingUpdater) ValidateDefinition(model.ChallengeDefinition) error { return nil }

func (u *TrendingUpdater) Update(_ context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, _ model.ChallengeDefinition) error {
	for _, row := range rows {
		row.CurrentStepCount = 1
		row.IsComplete = true
	}
	return nil
}
