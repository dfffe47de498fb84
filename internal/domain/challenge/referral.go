package challenge

import (
	"context"
	"strconv"

	"github.com/soundvine/rewards/internal/domain/model"
)

// ReferralUpdater marks one row per referred user: the referred user id is
// the specifier, so every successful referral is its own claimable instance
// and replaying a signup event re-completes the same row harmlessly.
type ReferralUpdater struct{}

// NewReferralUpdater creates the referrals updater.
func NewReferralUpdater() *ReferralUpdater { return &ReferralUpdater{} }

func (u *ReferralUpdater) ChallengeID() string { return "referrals" }

func (u *ReferralUpdater) Kinds() []model.EventKind {
	return []model.EventKind{model.KindReferralSignup}
}

func (u *ReferralUpdater) Keys(e model.Event) []model.Key {
	extra, ok := e.Extra.(model.ReferralExtra)
	if !ok {
		return nil
	}
	return []model.Key{{
		UserID:    e.UserID,
		Specifier: strconv.FormatInt(extra.ReferredUserID, 10),
	}}
}

func (u *ReferralUpdater) ValidateDefinition(model.ChallengeDefinition) error { return nil }

func (u *ReferralUpdater) Update(_ context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, _ model.ChallengeDefinition) error {
	for _, row := range rows {
		row.CurrentStepCount = 1
		row.IsComplete = true
	}
	return nil
}
