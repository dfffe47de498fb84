package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// Read models over the rows written by the ingestion pipeline. This
// subsystem only ever reads them.

// User mirrors the ingested user row fields the rewards subsystem needs.
type User struct {
	ID                int64 `gorm:"primaryKey"`
	FollowerCount     int64 `gorm:"not null;default:0"`
	IsProfileComplete bool  `gorm:"not null;default:false"`
}

// ContentItem mirrors an ingested content row (track or similar).
type ContentItem struct {
	ID          int64  `gorm:"primaryKey"`
	OwnerID     int64  `gorm:"index;not null"`
	BlockNumber int64  `gorm:"not null"`
	Genre       string `gorm:"index;size:64"`
	IsDelete    bool   `gorm:"not null;default:false"`
	IsHidden    bool   `gorm:"not null;default:false"`
	CreatedAt   time.Time
}

// Playlist mirrors an ingested collection row.
type Playlist struct {
	ID        int64  `gorm:"primaryKey"`
	OwnerID   int64  `gorm:"index;not null"`
	Genre     string `gorm:"index;size:64"`
	IsDelete  bool   `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// Repost is one user reposting one item.
type Repost struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	ItemID    int64 `gorm:"primaryKey;autoIncrement:false;index"`
	IsDelete  bool  `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// Save is one user saving one item.
type Save struct {
	UserID    int64 `gorm:"primaryKey;autoIncrement:false"`
	ItemID    int64 `gorm:"primaryKey;autoIncrement:false;index"`
	IsDelete  bool  `gorm:"not null;default:false"`
	CreatedAt time.Time
}

// Play is one listen of one item.
type Play struct {
	ID        int64 `gorm:"primaryKey;autoIncrement"`
	ItemID    int64 `gorm:"index;not null"`
	CreatedAt time.Time
}

// Aggregates exposes the durable recount queries counting updaters rely on.
// Recomputing from these makes duplicate event delivery a no-op.
type Aggregates interface {
	// UploadCountSince counts non-deleted, non-hidden items owned by the
	// user created at or after the given block.
	UploadCountSince(ctx context.Context, userID, sinceBlock int64) (int, error)

	// FollowerCount returns the user's current follower count.
	FollowerCount(ctx context.Context, userID int64) (int, error)

	// PlaylistCount counts the user's non-deleted playlists.
	PlaylistCount(ctx context.Context, userID int64) (int, error)
}

// GormAggregates implements Aggregates on the relational store.
type GormAggregates struct {
	db *gorm.DB
}

// NewGormAggregates ensures the read-model tables exist (a no-op when the
// ingestion pipeline already provisioned them) and returns the adapter.
func NewGormAggregates(db *gorm.DB) (*GormAggregates, error) {
	err := db.AutoMigrate(&User{}, &ContentItem{}, &Playlist{}, &Repost{}, &Save{}, &Play{})
	if err != nil {
		return nil, fmt.Errorf("migrate aggregate tables: %w", err)
	}
	return &GormAggregates{db: db}, nil
}

// UploadCountSince counts non-deleted, non-hidden items owned by the user
// created at or after the given block.
func (a *GormAggregates) UploadCountSince(ctx context.Context, userID, sinceBlock int64) (int, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&ContentItem{}).
		Where("owner_id = ? AND block_number >= ? AND is_delete = ? AND is_hidden = ?",
			userID, sinceBlock, false, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: upload count: %v", ErrStore, err)
	}
	return int(n), nil
}

// FollowerCount returns the user's current follower count.
func (a *GormAggregates) FollowerCount(ctx context.Context, userID int64) (int, error) {
	var u User
	err := a.db.WithContext(ctx).First(&u, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("%w: follower count: %v", ErrStore, err)
	}
	return int(u.FollowerCount), nil
}

// PlaylistCount counts the user's non-deleted playlists.
func (a *GormAggregates) PlaylistCount(ctx context.Context, userID int64) (int, error) {
	var n int64
	err := a.db.WithContext(ctx).Model(&Playlist{}).
		Where("owner_id = ? AND is_delete = ?", userID, false).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("%w: playlist count: %v", ErrStore, err)
	}
	return int(n), nil
}
