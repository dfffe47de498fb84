// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"fmt"
)

// EventKind identifies the type of a domain event flowing through the bus.
type EventKind string

// All event kinds produced by the indexing and trending jobs.
const (
	KindContentUpload  EventKind = "content_upload"
	KindContentDelete  EventKind = "content_delete"
	KindRepost         EventKind = "repost"
	KindSave           EventKind = "save"
	KindFollow         EventKind = "follow"
	KindPlaylistCreate EventKind = "playlist_create"
	KindReferralSignup EventKind = "referral_signup"
	KindTrendingRank   EventKind = "trending_rank"
)

// KnownKind reports whether k is a recognized event kind.
func KnownKind(k EventKind) bool {
	switch k {
	case KindContentUpload, KindContentDelete, KindRepost, KindSave,
		KindFollow, KindPlaylistCreate, KindReferralSignup, KindTrendingRank:
		return true
	}
	return false
}

// Extra is the kind-specific payload carried by an Event. Each kind that
// needs a payload has its own struct; kinds without payload carry nil.
type Extra interface {
	extraKind() EventKind
}

// UploadExtra accompanies content_upload and content_delete events.
type UploadExtra struct {
	ItemID int64 `json:"item_id"`
}

func (UploadExtra) extraKind() EventKind { return KindContentUpload }

// SocialExtra accompanies repost and save events.
type SocialExtra struct {
	ItemID int64 `json:"item_id"`
}

func (SocialExtra) extraKind() EventKind { return KindRepost }

// FollowExtra accompanies follow events.
type FollowExtra struct {
	FolloweeID int64 `json:"followee_id"`
}

func (FollowExtra) extraKind() EventKind { return KindFollow }

// ReferralExtra accompanies referral_signup events. The referred user id
// doubles as the challenge specifier so each referral earns its own row.
type ReferralExtra struct {
	ReferredUserID int64 `json:"referred_user_id"`
}

func (ReferralExtra) extraKind() EventKind { return KindReferralSignup }

// TrendingRankExtra accompanies trending_rank events pushed by the trending
// job. Period encodes the ranking window (e.g. "2026-35" for an ISO week) so
// the same challenge can be won again in a later period.
type TrendingRankExtra struct {
	Rank   int    `json:"rank"`
	ItemID int64  `json:"item_id"`
	Type   string `json:"type"`
	Period string `json:"period"`
}

func (TrendingRankExtra) extraKind() EventKind { return KindTrendingRank }

// Event is the transient message delivered through the event bus.
type Event struct {
	Kind        EventKind
	UserID      int64
	BlockNumber int64
	Extra       Extra
}

// Validate checks the envelope fields and that the payload matches the kind.
// The bus drops invalid events at dispatch time; producers are never blocked.
func (e Event) Validate() error {
	if !KnownKind(e.Kind) {
		return fmt.Errorf("%w: kind %q", ErrInvalidEvent, e.Kind)
	}
	if e.UserID <= 0 {
		return fmt.Errorf("%w: user id %d", ErrInvalidEvent, e.UserID)
	}
	if e.BlockNumber < 0 {
		return fmt.Errorf("%w: block number %d", ErrInvalidEvent, e.BlockNumber)
	}
	switch e.Kind {
	case KindContentUpload, KindContentDelete:
		if _, ok := e.Extra.(UploadExtra); !ok {
			return fmt.Errorf("%w: %s requires UploadExtra", ErrInvalidEvent, e.Kind)
		}
	case KindRepost, KindSave:
		if _, ok := e.Extra.(SocialExtra); !ok {
			return fmt.Errorf("%w: %s requires SocialExtra", ErrInvalidEvent, e.Kind)
		}
	case KindFollow:
		if e.Extra != nil {
			if _, ok := e.Extra.(FollowExtra); !ok {
				return fmt.Errorf("%w: follow requires FollowExtra", ErrInvalidEvent)
			}
		}
	case KindReferralSignup:
		if _, ok := e.Extra.(ReferralExtra); !ok {
			return fmt.Errorf("%w: referral_signup requires ReferralExtra", ErrInvalidEvent)
		}
	case KindTrendingRank:
		if _, ok := e.Extra.(TrendingRankExtra); !ok {
			return fmt.Errorf("%w: trending_rank requires TrendingRankExtra", ErrInvalidEvent)
		}
	case KindPlaylistCreate:
		// no payload
	}
	return nil
}

// Envelope is the wire form stored in the durable queue.
type Envelope struct {
	ID          string          `json:"id"`
	Kind        EventKind       `json:"kind"`
	UserID      int64           `json:"user_id"`
	BlockNumber int64           `json:"block_number"`
	Extra       json.RawMessage `json:"extra,omitempty"`
}

// MarshalEvent serializes an event into its queue envelope.
func MarshalEvent(id string, e Event) ([]byte, error) {
	env := Envelope{
		ID:          id,
		Kind:        e.Kind,
		UserID:      e.UserID,
		BlockNumber: e.BlockNumber,
	}
	if e.Extra != nil {
		raw, err := json.Marshal(e.Extra)
		if err != nil {
			return nil, fmt.Errorf("marshal extra: %w", err)
		}
		env.Extra = raw
	}
	return json.Marshal(env)
}

// UnmarshalEvent decodes a queue envelope back into an Event, resolving the
// payload type from the kind.
func UnmarshalEvent(payload []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	e := Event{
		Kind:        env.Kind,
		UserID:      env.UserID,
		BlockNumber: env.BlockNumber,
	}
	if len(env.Extra) > 0 {
		extra, err := decodeExtra(env.Kind, env.Extra)
		if err != nil {
			return Event{}, err
		}
		e.Extra = extra
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
	}
	return e, nil
}

func decodeExtra(kind EventKind, raw json.RawMessage) (Extra, error) {
	switch kind {
	case KindContentUpload, KindContentDelete:
		var x UploadExtra
		if err := json.Unmarshal(raw, &x); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return x, nil
	case KindRepost, KindSave:
		var x SocialExtra
		if err := json.Unmarshal(raw, &x); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return x, nil
	case KindFollow:
		var x FollowExtra
		if err := json.Unmarshal(raw, &x); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return x, nil
	case KindReferralSignup:
		var x ReferralExtra
		if err := json.Unmarshal(raw, &x); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return x, nil
	case KindTrendingRank:
		var x TrendingRankExtra
		if err := json.Unmarshal(raw, &x); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptPayload, err)
		}
		return x, nil
	}
	return nil, nil
}
