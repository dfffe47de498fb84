package challenge

import (
	"fmt"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Registry is the static table of updaters keyed by challenge id, built once
// at startup. No runtime reflection; adding a challenge kind means adding an
// updater and registering it here.
type Registry struct {
	updaters map[string]Updater
	order    []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{updaters: make(map[string]Updater)}
}

// Register adds an updater. Registering the same challenge id twice panics;
// two updaters for one ledger partition would violate the single-writer rule.
func (r *Registry) Register(u Updater) {
	id := u.ChallengeID()
	if _, dup := r.updaters[id]; dup {
		panic(fmt.Sprintf("challenge: updater %q already registered", id))
	}
	r.updaters[id] = u
	r.order = append(r.order, id)
}

// Lookup returns the updater for a challenge id.
func (r *Registry) Lookup(id string) (Updater, error) {
	u, ok := r.updaters[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownChallenge, id)
	}
	return u, nil
}

// IDs returns the registered challenge ids in registration order.
func (r *Registry) IDs() []string {
	return append([]string(nil), r.order...)
}

// DefaultRegistry wires every shipped updater with its dependencies.
// rewardRanks is how many top trending positions earn the ranked challenges.
func DefaultRegistry(aggs Aggregates, rewardRanks int) *Registry {
	r := NewRegistry()
	r.Register(NewUploadCountUpdater(aggs))
	r.Register(NewPlaylistCountUpdater(aggs))
	r.Register(NewFanBaseUpdater(aggs))
	r.Register(NewBooleanUpdater("first-playlist", model.KindPlaylistCreate))
	r.Register(NewBooleanUpdater("first-repost", model.KindRepost))
	r.Register(NewBooleanUpdater("first-save", model.KindSave))
	r.Register(NewReferralUpdater())
	r.Register(NewTrendingUpdater("trending-track-top5", string(model.TrendingTracks), rewardRanks))
	r.Register(NewTrendingUpdater("trending-playlist-top5", string(model.TrendingPlaylists), rewardRanks))
	return r
}
