package trending

import (
	"context"
	"fmt"
	"time"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Source supplies the engagement features for a scoring pass.
type Source interface {
	// WindowedItems returns every candidate of the given type with its
	// all-time and windowed engagement counts relative to the reference
	// time. A non-empty category restricts candidates to that genre.
	WindowedItems(ctx context.Context, typ model.TrendingType, category string, window time.Duration, at time.Time) ([]model.ScoredItem, error)
}

// Request identifies one ranking pass. At is the single reference time used
// for the age term; callers must not read the clock twice. An empty Category
// ranks every genre.
type Request struct {
	Type     model.TrendingType
	Version  string
	Range    model.TimeRange
	Category string
	Limit    int
	At       time.Time
}

// Generator produces ranked item lists. It holds no mutable cross-call
// state; each Generate is a pure read-then-compute.
type Generator struct {
	source Source
}

// NewGenerator creates a generator over the given source.
func NewGenerator(source Source) *Generator {
	return &Generator{source: source}
}

// Generate gathers features, applies the requested strategy version, and
// returns an immutable ranking snapshot. For fixed inputs and version the
// output is byte-for-byte deterministic.
func (g *Generator) Generate(ctx context.Context, req Request) (model.TrendingRank, error) {
	if req.Limit <= 0 {
		return model.TrendingRank{}, fmt.Errorf("%w: limit %d", ErrInvalidRequest, req.Limit)
	}
	if req.At.IsZero() {
		return model.TrendingRank{}, fmt.Errorf("%w: zero reference time", ErrInvalidRequest)
	}
	strategy, err := Lookup(req.Version)
	if err != nil {
		return model.TrendingRank{}, err
	}

	window := req.Range.Window()
	items, err := g.source.WindowedItems(ctx, req.Type, req.Category, window, req.At)
	if err != nil {
		return model.TrendingRank{}, fmt.Errorf("gather items: %w", err)
	}

	ordered := rank(items, strategy, window, req.At)
	if len(ordered) > req.Limit {
		ordered = ordered[:req.Limit]
	}

	result := model.TrendingRank{
		Type:      req.Type,
		Version:   req.Version,
		Range:     req.Range,
		Category:  req.Category,
		Period:    PeriodKey(req.Range, req.At),
		ItemIDs:   make([]int64, len(ordered)),
		OwnerIDs:  make([]int64, len(ordered)),
		Generated: req.At,
	}
	for i, s := range ordered {
		result.ItemIDs[i] = s.item.ItemID
		result.OwnerIDs[i] = s.item.OwnerID
	}
	return result, nil
}

// PeriodKey renders the ranking period for a reference time: ISO week for
// weekly ranks, year-month for monthly, year for yearly. The key becomes the
// challenge specifier so a user can win again in a later period.
func PeriodKey(r model.TimeRange, at time.Time) string {
	switch r {
	case model.RangeMonth:
		return at.UTC().Format("2006-01")
	case model.RangeYear:
		return at.UTC().Format("2006")
	default:
		year, week := at.UTC().ISOWeek()
		return fmt.Sprintf("%d-%02d", year, week)
	}
}
