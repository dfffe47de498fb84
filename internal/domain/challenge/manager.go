package challenge

import (
	"context"
	"fmt"

	"github.com/soundvine/rewards/internal/adapters/repository"
	"github.com/soundvine/rewards/internal/domain/model"
	"github.com/soundvine/rewards/pkg/logger"
	"github.com/soundvine/rewards/pkg/metrics"
)

// Manager bridges one challenge's bus deliveries to its updater and the
// ledger. It is the sole writer of UserChallenge rows for its challenge id.
type Manager struct {
	def     model.ChallengeDefinition
	updater Updater
	ledger  repository.Ledger
	logger  logger.Logger
}

// NewManager validates the definition against the updater and returns a
// manager. A validation failure is a configuration error; callers are
// expected to treat it as fatal.
func NewManager(def model.ChallengeDefinition, u Updater, ledger repository.Ledger) (*Manager, error) {
	if def.ID != u.ChallengeID() {
		return nil, fmt.Errorf("%w: definition %s wired to updater %s", ErrMissingConfig, def.ID, u.ChallengeID())
	}
	if err := u.ValidateDefinition(def); err != nil {
		return nil, err
	}
	return &Manager{
		def:     def,
		updater: u,
		ledger:  ledger,
		logger:  logger.Get().Named("challenge").Named(def.ID),
	}, nil
}

// Name identifies the manager in bus logs and metrics.
func (m *Manager) Name() string { return m.def.ID }

// Kinds lists the event kinds this manager wants delivered.
func (m *Manager) Kinds() []model.EventKind { return m.updater.Kinds() }

// Process handles one delivered batch: derive touched rows, load or default
// them, let the updater recompute, then persist under the monotonicity and
// freeze rules. Safe to call twice with the same batch.
func (m *Manager) Process(ctx context.Context, events []model.Event) error {
	if !m.def.Active {
		return nil
	}

	relevant := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.BlockNumber >= m.def.StartingBlock {
			relevant = append(relevant, e)
		}
	}
	if len(relevant) == 0 {
		return nil
	}

	var maxBlock int64
	keys := make([]model.Key, 0, len(relevant))
	seen := make(map[model.Key]struct{})
	for _, e := range relevant {
		if e.BlockNumber > maxBlock {
			maxBlock = e.BlockNumber
		}
		for _, k := range m.updater.Keys(e) {
			if _, dup := seen[k]; dup {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	existing, err := m.ledger.Rows(ctx, m.def.ID, keys)
	if err != nil {
		return fmt.Errorf("%s: %w", m.def.ID, err)
	}

	rows := make(map[model.Key]*model.UserChallenge, len(keys))
	originals := make(map[model.Key]model.UserChallenge, len(keys))
	for _, k := range keys {
		row, ok := existing[k]
		if !ok {
			row = model.UserChallenge{
				ChallengeID: m.def.ID,
				UserID:      k.UserID,
				Specifier:   k.Specifier,
			}
		}
		originals[k] = row
		cp := row
		rows[k] = &cp
	}

	if err := m.updater.Update(ctx, relevant, rows, m.def); err != nil {
		return fmt.Errorf("%s: update: %w", m.def.ID, err)
	}

	upserts := make([]model.UserChallenge, 0, len(keys))
	for _, k := range keys {
		row := rows[k]
		orig := originals[k]
		_, existed := existing[k]

		// Freeze rule: a completed row never regresses, even if a later
		// indexing pass recomputes a lower state.
		if orig.IsComplete {
			if !row.IsComplete || row.CurrentStepCount < orig.CurrentStepCount {
				continue
			}
		}

		// Monotonicity: step counts never decrease, completion never
		// flips back to false.
		if row.CurrentStepCount < orig.CurrentStepCount {
			row.CurrentStepCount = orig.CurrentStepCount
		}
		if orig.IsComplete {
			row.IsComplete = true
		}

		if row.IsComplete && row.CompletedBlocknumber == nil {
			b := maxBlock
			row.CompletedBlocknumber = &b
		}
		row.IsDisbursed = orig.IsDisbursed

		if existed && *row == orig {
			continue
		}
		if !existed && row.CurrentStepCount == 0 && !row.IsComplete {
			continue
		}
		if !orig.IsComplete && row.IsComplete {
			metrics.RecordCompletion(m.def.ID)
			m.logger.Info(ctx, "challenge completed",
				logger.Int64("user_id", row.UserID),
				logger.String("specifier", row.Specifier),
				logger.Int64("block_number", maxBlock),
			)
		}
		upserts = append(upserts, *row)
	}

	if err := m.ledger.UpsertRows(ctx, upserts); err != nil {
		return fmt.Errorf("%s: %w", m.def.ID, err)
	}
	return nil
}
