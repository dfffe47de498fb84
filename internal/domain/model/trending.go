package model

import "time"

// TrendingType distinguishes what is being ranked.
type TrendingType string

// Ranked entity types.
const (
	TrendingTracks    TrendingType = "tracks"
	TrendingPlaylists TrendingType = "playlists"
)

// TimeRange selects the engagement window for a ranking pass.
type TimeRange string

// Supported ranking windows.
const (
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
)

// Window returns the wall-clock length of the range.
func (r TimeRange) Window() time.Duration {
	switch r {
	case RangeMonth:
		return 30 * 24 * time.Hour
	case RangeYear:
		return 365 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// ScoredItem carries the windowed engagement features for one item during a
// scoring pass. It is ephemeral; only the resulting rank is ever published.
type ScoredItem struct {
	ItemID             int64
	OwnerID            int64
	Listens            float64
	Reposts            float64
	Saves              float64
	WindowedReposts    float64
	WindowedSaves      float64
	OwnerFollowerCount int64
	Karma              float64
	CreatedAt          time.Time
}

// TrendingRank is an immutable ranking snapshot: item ids ordered best-first,
// keyed by what was ranked and how.
type TrendingRank struct {
	Type      TrendingType
	Version   string
	Range     TimeRange
	Category  string
	Period    string
	ItemIDs   []int64
	OwnerIDs  []int64
	Generated time.Time
}
