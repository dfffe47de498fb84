package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/soundvine/rewards/internal/domain/model"
)

// GormTrendingSource joins per-item engagement aggregates for a scoring
// pass. Every call is a fresh read; the generator holds no cross-call state.
type GormTrendingSource struct {
	db *gorm.DB
}

// NewGormTrendingSource returns a trending source over db.
func NewGormTrendingSource(db *gorm.DB) *GormTrendingSource {
	return &GormTrendingSource{db: db}
}

// rankCandidate is the type-independent shape of one rankable entity.
type rankCandidate struct {
	ID        int64
	OwnerID   int64
	CreatedAt time.Time
}

// WindowedItems gathers the scoring features for every live candidate of the
// requested type: all-time and windowed engagement counts, the owner's
// follower count, and the karma multiplier. The window is [at - window, at].
// A non-empty category restricts candidates to that genre.
func (s *GormTrendingSource) WindowedItems(ctx context.Context, typ model.TrendingType, category string, window time.Duration, at time.Time) ([]model.ScoredItem, error) {
	since := at.Add(-window)

	candidates, err := s.candidates(ctx, typ, category)
	if err != nil {
		return nil, err
	}

	out := make([]model.ScoredItem, 0, len(candidates))
	for _, c := range candidates {
		si := model.ScoredItem{
			ItemID:    c.ID,
			OwnerID:   c.OwnerID,
			CreatedAt: c.CreatedAt,
		}

		var owner User
		if err := s.db.WithContext(ctx).First(&owner, "id = ?", c.OwnerID).Error; err == nil {
			si.OwnerFollowerCount = owner.FollowerCount
		}

		var listens int64
		if err := s.db.WithContext(ctx).Model(&Play{}).
			Where("item_id = ? AND created_at >= ?", c.ID, since).
			Count(&listens).Error; err != nil {
			return nil, fmt.Errorf("%w: count plays: %v", ErrStore, err)
		}
		si.Listens = float64(listens)

		var reposts, windowedReposts int64
		if err := s.db.WithContext(ctx).Model(&Repost{}).
			Where("item_id = ? AND is_delete = ?", c.ID, false).
			Count(&reposts).Error; err != nil {
			return nil, fmt.Errorf("%w: count reposts: %v", ErrStore, err)
		}
		if err := s.db.WithContext(ctx).Model(&Repost{}).
			Where("item_id = ? AND is_delete = ? AND created_at >= ?", c.ID, false, since).
			Count(&windowedReposts).Error; err != nil {
			return nil, fmt.Errorf("%w: count windowed reposts: %v", ErrStore, err)
		}
		si.Reposts = float64(reposts)
		si.WindowedReposts = float64(windowedReposts)

		var saves, windowedSaves int64
		if err := s.db.WithContext(ctx).Model(&Save{}).
			Where("item_id = ? AND is_delete = ?", c.ID, false).
			Count(&saves).Error; err != nil {
			return nil, fmt.Errorf("%w: count saves: %v", ErrStore, err)
		}
		if err := s.db.WithContext(ctx).Model(&Save{}).
			Where("item_id = ? AND is_delete = ? AND created_at >= ?", c.ID, false, since).
			Count(&windowedSaves).Error; err != nil {
			return nil, fmt.Errorf("%w: count windowed saves: %v", ErrStore, err)
		}
		si.Saves = float64(saves)
		si.WindowedSaves = float64(windowedSaves)

		karma, err := s.karma(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		si.Karma = karma

		out = append(out, si)
	}
	return out, nil
}

// candidates loads the live rankable rows for one trending type. Tracks and
// playlists live in separate tables; engagement joins share the item id.
func (s *GormTrendingSource) candidates(ctx context.Context, typ model.TrendingType, category string) ([]rankCandidate, error) {
	switch typ {
	case model.TrendingPlaylists:
		q := s.db.WithContext(ctx).Where("is_delete = ?", false)
		if category != "" {
			q = q.Where("genre = ?", category)
		}
		var rows []Playlist
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: load playlists: %v", ErrStore, err)
		}
		out := make([]rankCandidate, len(rows))
		for i, r := range rows {
			out[i] = rankCandidate{ID: r.ID, OwnerID: r.OwnerID, CreatedAt: r.CreatedAt}
		}
		return out, nil
	default:
		q := s.db.WithContext(ctx).Where("is_delete = ? AND is_hidden = ?", false, false)
		if category != "" {
			q = q.Where("genre = ?", category)
		}
		var rows []ContentItem
		if err := q.Find(&rows).Error; err != nil {
			return nil, fmt.Errorf("%w: load items: %v", ErrStore, err)
		}
		out := make([]rankCandidate, len(rows))
		for i, r := range rows {
			out[i] = rankCandidate{ID: r.ID, OwnerID: r.OwnerID, CreatedAt: r.CreatedAt}
		}
		return out, nil
	}
}

// karma sums the follower counts of every distinct complete-profile user who
// reposted or saved the item. An anti-spam heuristic: engagement from
// throwaway accounts contributes nothing.
func (s *GormTrendingSource) karma(ctx context.Context, itemID int64) (float64, error) {
	var total float64
	err := s.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(u.follower_count), 0)
		FROM users u
		WHERE u.is_profile_complete = ?
		  AND u.id IN (
			SELECT user_id FROM reposts WHERE item_id = ? AND is_delete = ?
			UNION
			SELECT user_id FROM saves WHERE item_id = ? AND is_delete = ?
		  )`, true, itemID, false, itemID, false).
		Scan(&total).Error
	if err != nil {
		return 0, fmt.Errorf("%w: karma: %v", ErrStore, err)
	}
	return total, nil
}
