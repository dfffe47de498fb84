package challenge

import (
	"context"
	"fmt"

	"github.com/soundvine/rewards/internal/domain/model"
)

// BooleanUpdater completes on the first receipt of its triggering kind.
// No step counting; replays land on an already-complete row and change
// nothing. One instance serves every "first X" challenge.
type BooleanUpdater struct {
	id    string
	kinds []model.EventKind
}

// NewBooleanUpdater creates a boolean updater for the given challenge id
// triggered by the given kinds.
func NewBooleanUpdater(id string, kinds ...model.EventKind) *BooleanUpdater {
	return &BooleanUpdater{id: id, kinds: kinds}
}

func (u *BooleanUpdater) ChallengeID() string { return u.id }

func (u *BooleanUpdater) Kinds() []model.EventKind { return u.kinds }

func (u *BooleanUpdater) Keys(e model.Event) []model.Key {
	return []model.Key{{UserID: e.UserID, Specifier: SingleSpecifier}}
}

func (u *BooleanUpdater) ValidateDefinition(def model.ChallengeDefinition) error {
	if def.StepCount != nil && *def.StepCount != 1 {
		return fmt.Errorf("%w: %s is boolean, step_count must be 1 or unset", ErrMissingConfig, def.ID)
	}
	return nil
}

func (u *BooleanUpdater) Update(_ context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, _ model.ChallengeDefinition) error {
	for _, row := range rows {
		row.CurrentStepCount = 1
		row.IsComplete = true
	}
	return nil
}
