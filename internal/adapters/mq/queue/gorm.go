package queue

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// queueEntry is the relational backing row. The autoincrement id is the list
// order: append = insert, head = lowest ids.
type queueEntry struct {
	ID        uint64 `gorm:"primaryKey;autoIncrement"`
	Payload   []byte `gorm:"not null"`
	CreatedAt time.Time
}

func (queueEntry) TableName() string { return "challenge_events_queue" }

// GormQueue implements Queue on the relational store.
type GormQueue struct {
	db *gorm.DB
}

// NewGormQueue migrates the queue table and returns a queue over db.
func NewGormQueue(db *gorm.DB) (*GormQueue, error) {
	if err := db.AutoMigrate(&queueEntry{}); err != nil {
		return nil, fmt.Errorf("migrate queue table: %w", err)
	}
	return &GormQueue{db: db}, nil
}

// Append pushes payloads onto the tail in order.
func (q *GormQueue) Append(ctx context.Context, payloads [][]byte) error {
	if len(payloads) == 0 {
		return nil
	}
	rows := make([]queueEntry, len(payloads))
	for i, p := range payloads {
		rows[i] = queueEntry{Payload: p}
	}
	if err := q.db.WithContext(ctx).Create(&rows).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrAppend, err)
	}
	return nil
}

// Head returns up to max entries from the head without removing them.
func (q *GormQueue) Head(ctx context.Context, max int) ([]Entry, error) {
	if max <= 0 {
		return nil, nil
	}
	var rows []queueEntry
	err := q.db.WithContext(ctx).
		Order("id asc").
		Limit(max).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRead, err)
	}
	out := make([]Entry, len(rows))
	for i, r := range rows {
		out[i] = Entry{ID: r.ID, Payload: r.Payload}
	}
	return out, nil
}

// Trim removes every entry with id <= upTo.
func (q *GormQueue) Trim(ctx context.Context, upTo uint64) error {
	if err := q.db.WithContext(ctx).Where("id <= ?", upTo).Delete(&queueEntry{}).Error; err != nil {
		return fmt.Errorf("%w: %v", ErrTrim, err)
	}
	return nil
}

// Len returns the current number of queued entries.
func (q *GormQueue) Len(ctx context.Context) (int, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&queueEntry{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRead, err)
	}
	return int(n), nil
}
