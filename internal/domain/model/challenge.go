package model

import "time"

// ChallengeDefinition is a static catalog entry describing one challenge
// kind. Definitions are upserted at startup and read-only afterwards.
type ChallengeDefinition struct {
	ID string `gorm:"primaryKey;size:64"`
	// StepCount is the number of discrete steps required to complete the
	// challenge. Nil for boolean challenges.
	StepCount *int
	// Amount is the reward unit count disbursed on completion.
	Amount int64 `gorm:"not null"`
	Active bool  `gorm:"not null"`
	// StartingBlock gates the challenge: events before this block number
	// are ignored.
	StartingBlock int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// UserChallenge is a durable ledger row recording one user's progress on one
// challenge instance. The specifier disambiguates repeatable instances
// (one row per trending period, one row per referral).
//
// Invariants enforced by the challenge manager:
//   - IsComplete is write-once-true.
//   - CurrentStepCount never decreases for accumulating challenges.
//   - Completed rows are frozen; stale recomputation never regresses them.
type UserChallenge struct {
	ChallengeID          string `gorm:"primaryKey;size:64;uniqueIndex:idx_user_challenge,priority:1"`
	UserID               int64  `gorm:"primaryKey;uniqueIndex:idx_user_challenge,priority:2"`
	Specifier            string `gorm:"primaryKey;size:64;uniqueIndex:idx_user_challenge,priority:3"`
	CurrentStepCount     int    `gorm:"not null"`
	IsComplete           bool   `gorm:"not null;index:idx_complete_undisbursed"`
	CompletedBlocknumber *int64
	IsDisbursed          bool      `gorm:"not null;index:idx_complete_undisbursed"`
	UpdatedAt            time.Time `gorm:"autoUpdateTime"`
}

// Key identifies a ledger row within one challenge.
type Key struct {
	UserID    int64
	Specifier string
}

// RowKey returns the (user, specifier) key of the row.
func (c UserChallenge) RowKey() Key {
	return Key{UserID: c.UserID, Specifier: c.Specifier}
}
