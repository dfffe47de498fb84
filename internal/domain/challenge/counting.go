package challenge

import (
	"context"
	"fmt"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Aggregates is the durable recount surface counting updaters rely on.
// Mirrors repository.Aggregates; declared here so the domain package does
// not depend on the adapter.
type Aggregates interface {
	UploadCountSince(ctx context.Context, userID, sinceBlock int64) (int, error)
	FollowerCount(ctx context.Context, userID int64) (int, error)
	PlaylistCount(ctx context.Context, userID int64) (int, error)
}

// UploadCountUpdater counts a user's live uploads since the challenge's
// starting block. The triggering event only says *whose* count to refresh;
// the count itself always comes from the store, so replays are no-ops and a
// later delete pass simply stops incrementing (completed rows stay frozen).
type UploadCountUpdater struct {
	aggs Aggregates
}

// NewUploadCountUpdater creates the track-upload-count updater.
func NewUploadCountUpdater(aggs Aggregates) *UploadCountUpdater {
	return &UploadCountUpdater{aggs: aggs}
}

func (u *UploadCountUpdater) ChallengeID() string { return "track-upload-count" }

func (u *UploadCountUpdater) Kinds() []model.EventKind {
	return []model.EventKind{model.KindContentUpload, model.KindContentDelete}
}

func (u *UploadCountUpdater) Keys(e model.Event) []model.Key {
	return []model.Key{{UserID: e.UserID, Specifier: SingleSpecifier}}
}

func (u *UploadCountUpdater) ValidateDefinition(def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	return nil
}

func (u *UploadCountUpdater) Update(ctx context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	for key, row := range rows {
		count, err := u.aggs.UploadCountSince(ctx, key.UserID, def.StartingBlock)
		if err != nil {
			return fmt.Errorf("recount uploads for user %d: %w", key.UserID, err)
		}
		row.CurrentStepCount = count
		row.IsComplete = count >= *def.StepCount
	}
	return nil
}

// PlaylistCountUpdater counts a user's live playlists. Like the upload
// counter it recounts from the store on every delivery, so replayed create
// events and later deletions are absorbed without ledger deltas.
type PlaylistCountUpdater struct {
	aggs Aggregates
}

// NewPlaylistCountUpdater creates the playlist-count updater.
func NewPlaylistCountUpdater(aggs Aggregates) *PlaylistCountUpdater {
	return &PlaylistCountUpdater{aggs: aggs}
}

func (u *PlaylistCountUpdater) ChallengeID() string { return "playlist-count" }

func (u *PlaylistCountUpdater) Kinds() []model.EventKind {
	return []model.EventKind{model.KindPlaylistCreate}
}

func (u *PlaylistCountUpdater) Keys(e model.Event) []model.Key {
	return []model.Key{{UserID: e.UserID, Specifier: SingleSpecifier}}
}

func (u *PlaylistCountUpdater) ValidateDefinition(def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	return nil
}

func (u *PlaylistCountUpdater) Update(ctx context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	for key, row := range rows {
		count, err := u.aggs.PlaylistCount(ctx, key.UserID)
		if err != nil {
			return fmt.Errorf("recount playlists for user %d: %w", key.UserID, err)
		}
		row.CurrentStepCount = count
		row.IsComplete = count >= *def.StepCount
	}
	return nil
}

// FanBaseUpdater completes when a user's follower count reaches the step
// target. Follow events credit the followee, not the follower.
type FanBaseUpdater struct {
	aggs Aggregates
}

// NewFanBaseUpdater creates the fan-base updater.
func NewFanBaseUpdater(aggs Aggregates) *FanBaseUpdater {
	return &FanBaseUpdater{aggs: aggs}
}

func (u *FanBaseUpdater) ChallengeID() string { return "fan-base" }

func (u *FanBaseUpdater) Kinds() []model.EventKind {
	return []model.EventKind{model.KindFollow}
}

func (u *FanBaseUpdater) Keys(e model.Event) []model.Key {
	extra, ok := e.Extra.(model.FollowExtra)
	if !ok {
		return nil
	}
	return []model.Key{{UserID: extra.FolloweeID, Specifier: SingleSpecifier}}
}

func (u *FanBaseUpdater) ValidateDefinition(def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	return nil
}

func (u *FanBaseUpdater) Update(ctx context.Context, _ []model.Event, rows map[model.Key]*model.UserChallenge, def model.ChallengeDefinition) error {
	if def.StepCount == nil {
		return fmt.Errorf("%w: %s needs step_count", ErrMissingConfig, def.ID)
	}
	for key, row := range rows {
		followers, err := u.aggs.FollowerCount(ctx, key.UserID)
		if err != nil {
			return fmt.Errorf("follower count for user %d: %w", key.UserID, err)
		}
		row.CurrentStepCount = followers
		row.IsComplete = followers >= *def.StepCount
	}
	return nil
}
