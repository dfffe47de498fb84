// Package challenge implements the per-kind progress logic behind gamified
// challenges: a polymorphic updater per challenge id plus the manager that
// bridges bus deliveries to ledger writes.
package challenge

import (
	"context"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Updater is the pure progress logic for one challenge kind.
//
// Update must recompute state from events-so-far and durable aggregates, not
// apply payload deltas: recomputation makes duplicate or out-of-order
// delivery a no-op. Updaters never write to the ledger; they mutate the row
// set handed to them and the manager enforces the monotonicity and freeze
// invariants before anything is persisted.
type Updater interface {
	// ChallengeID is the catalog id this updater serves.
	ChallengeID() string

	// Kinds lists the event kinds that drive this challenge.
	Kinds() []model.EventKind

	// Keys derives the ledger row keys an event touches. An event can
	// affect a user other than its producer (a follow credits the
	// followee). Returning nothing skips the event.
	Keys(e model.Event) []model.Key

	// ValidateDefinition rejects catalog entries missing required fields.
	// Called once at startup; a failure is a configuration error and is
	// intentionally fatal.
	ValidateDefinition(def model.ChallengeDefinition) error

	// Update recomputes progress for the touched rows.
	Update(ctx context.Context, events []model.Event, rows map[model.Key]*model.UserChallenge, def model.ChallengeDefinition) error
}

// SingleSpecifier is the specifier for challenges with one instance per user.
const SingleSpecifier = "1"
