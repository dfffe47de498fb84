// Package trending computes deterministic, versioned popularity rankings
// over windowed engagement metrics.
package trending

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/soundvine/rewards/internal/domain/model"
)

// Strategy is one frozen scoring function version. Versions are additive:
// a published version never changes, so historical rankings stay
// reproducible by re-running the same version against the same aggregates.
type Strategy struct {
	Version string

	// Linear combination coefficients.
	ListenWeight         float64
	WindowedRepostWeight float64
	WindowedSaveWeight   float64
	RepostWeight         float64
	SaveWeight           float64

	// FollowerFloor zeroes items whose owner has fewer followers. Keeps
	// brand-new and sybil accounts out of trending.
	FollowerFloor int64

	// DecayBase is Q in the falloff max(1/Q, Q^(1-age/window)).
	DecayBase float64
}

// Score computes the item's popularity for the given window, using at as the
// single reference time for the age term.
func (s Strategy) Score(item model.ScoredItem, window time.Duration, at time.Time) float64 {
	if item.OwnerFollowerCount < s.FollowerFloor {
		return 0
	}

	score := s.ListenWeight*item.Listens +
		s.WindowedRepostWeight*item.WindowedReposts +
		s.WindowedSaveWeight*item.WindowedSaves +
		s.RepostWeight*item.Reposts +
		s.SaveWeight*item.Saves
	score *= item.Karma

	age := at.Sub(item.CreatedAt)
	if age > window {
		ratio := float64(age) / float64(window)
		decay := math.Pow(s.DecayBase, 1-ratio)
		floor := 1 / s.DecayBase
		if decay < floor {
			decay = floor
		}
		score *= decay
	}
	return score
}

var strategies = map[string]Strategy{}

// Register adds a strategy version. Re-registering an existing version
// panics: published versions are frozen.
func Register(s Strategy) {
	if _, dup := strategies[s.Version]; dup {
		panic(fmt.Sprintf("trending: strategy %q already registered", s.Version))
	}
	strategies[s.Version] = s
}

// Lookup returns a registered strategy version.
func Lookup(version string) (Strategy, error) {
	s, ok := strategies[version]
	if !ok {
		return Strategy{}, fmt.Errorf("%w: %q", ErrUnknownVersion, version)
	}
	return s, nil
}

func init() {
	Register(Strategy{
		Version:              "v1",
		ListenWeight:         1,
		WindowedRepostWeight: 10,
		WindowedSaveWeight:   8,
		RepostWeight:         2,
		SaveWeight:           1,
		FollowerFloor:        200,
		DecayBase:            100_000,
	})
	Register(Strategy{
		Version:              "v2",
		ListenWeight:         1,
		WindowedRepostWeight: 12,
		WindowedSaveWeight:   10,
		RepostWeight:         2,
		SaveWeight:           2,
		FollowerFloor:        200,
		DecayBase:            100_000,
	})
}

// rank orders items best-first: score descending, ties broken by item id
// descending so equal scores are always ordered the same way.
func rank(items []model.ScoredItem, s Strategy, window time.Duration, at time.Time) []scored {
	out := make([]scored, len(items))
	for i, item := range items {
		out[i] = scored{item: item, score: s.Score(item, window, at)}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].score != out[j].score {
			return out[i].score > out[j].score
		}
		return out[i].item.ItemID > out[j].item.ItemID
	})
	return out
}

type scored struct {
	item  model.ScoredItem
	score float64
}
