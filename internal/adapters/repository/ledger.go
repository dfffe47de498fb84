package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Ledger is the durable per-(challenge, user, specifier) progress surface.
// It carries no business logic; the challenge manager is its sole writer.
type Ledger interface {
	// UpsertDefinitions installs the static challenge catalog.
	UpsertDefinitions(ctx context.Context, defs []model.ChallengeDefinition) error

	// Definition returns a catalog entry or ErrNotFound.
	Definition(ctx context.Context, id string) (model.ChallengeDefinition, error)

	// Rows loads the existing ledger rows for the given keys of one
	// challenge. Missing keys are simply absent from the result.
	Rows(ctx context.Context, challengeID string, keys []model.Key) (map[model.Key]model.UserChallenge, error)

	// UpsertRows writes progress rows keyed by (challenge, user, specifier).
	UpsertRows(ctx context.Context, rows []model.UserChallenge) error

	// CompletedUndisbursed lists rows ready for attestation polling.
	CompletedUndisbursed(ctx context.Context, limit int) ([]model.UserChallenge, error)
}

// GormLedger implements Ledger on the relational store.
type GormLedger struct {
	db *gorm.DB
}

// NewGormLedger migrates the ledger tables and returns a ledger over db.
func NewGormLedger(db *gorm.DB) (*GormLedger, error) {
	if err := db.AutoMigrate(&model.ChallengeDefinition{}, &model.UserChallenge{}); err != nil {
		return nil, fmt.Errorf("migrate ledger tables: %w", err)
	}
	return &GormLedger{db: db}, nil
}

// UpsertDefinitions installs the static challenge catalog.
func (l *GormLedger) UpsertDefinitions(ctx context.Context, defs []model.ChallengeDefinition) error {
	if len(defs) == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"step_count", "amount", "active", "starting_block"}),
	}).Create(&defs).Error
	if err != nil {
		return fmt.Errorf("%w: upsert definitions: %v", ErrStore, err)
	}
	return nil
}

// Definition returns a catalog entry or ErrNotFound.
func (l *GormLedger) Definition(ctx context.Context, id string) (model.ChallengeDefinition, error) {
	var def model.ChallengeDefinition
	err := l.db.WithContext(ctx).First(&def, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.ChallengeDefinition{}, fmt.Errorf("%w: definition %s", ErrNotFound, id)
	}
	if err != nil {
		return model.ChallengeDefinition{}, fmt.Errorf("%w: %v", ErrStore, err)
	}
	return def, nil
}

// Rows loads the existing ledger rows for the given keys of one challenge.
func (l *GormLedger) Rows(ctx context.Context, challengeID string, keys []model.Key) (map[model.Key]model.UserChallenge, error) {
	out := make(map[model.Key]model.UserChallenge, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	wanted := make(map[model.Key]struct{}, len(keys))
	userIDs := make([]int64, 0, len(keys))
	for _, k := range keys {
		wanted[k] = struct{}{}
		userIDs = append(userIDs, k.UserID)
	}
	var rows []model.UserChallenge
	err := l.db.WithContext(ctx).
		Where("challenge_id = ? AND user_id IN ?", challengeID, userIDs).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load rows: %v", ErrStore, err)
	}
	for _, r := range rows {
		if _, ok := wanted[r.RowKey()]; ok {
			out[r.RowKey()] = r
		}
	}
	return out, nil
}

// UpsertRows writes progress rows keyed by (challenge, user, specifier).
func (l *GormLedger) UpsertRows(ctx context.Context, rows []model.UserChallenge) error {
	if len(rows) == 0 {
		return nil
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "challenge_id"}, {Name: "user_id"}, {Name: "specifier"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"current_step_count", "is_complete", "completed_blocknumber",
		}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("%w: upsert rows: %v", ErrStore, err)
	}
	return nil
}

// CompletedUndisbursed lists rows ready for attestation polling.
func (l *GormLedger) CompletedUndisbursed(ctx context.Context, limit int) ([]model.UserChallenge, error) {
	var rows []model.UserChallenge
	err := l.db.WithContext(ctx).
		Where("is_complete = ? AND is_disbursed = ?", true, false).
		Order("challenge_id, user_id, specifier").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list completed: %v", ErrStore, err)
	}
	return rows, nil
}
