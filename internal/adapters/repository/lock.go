package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// advisoryLock is a named lock row with a TTL. A holder that crashes simply
// lets the row expire; the next try-acquire steals it.
type advisoryLock struct {
	Name      string `gorm:"primaryKey;size:64"`
	Holder    string `gorm:"size:64"`
	ExpiresAt time.Time
}

func (advisoryLock) TableName() string { return "advisory_locks" }

// Locker provides non-blocking try-acquire semantics for periodic jobs.
// Failing to acquire is expected steady state under concurrent schedulers,
// not an error.
type Locker interface {
	// TryAcquire claims the named lock for ttl. Returns false when another
	// holder has it.
	TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error)

	// Release drops the lock if this locker still holds it.
	Release(ctx context.Context, name string) error
}

// GormLocker implements Locker on the relational store.
type GormLocker struct {
	db     *gorm.DB
	holder string
	now    func() time.Time
}

// NewGormLocker migrates the lock table and returns a locker with a unique
// holder identity.
func NewGormLocker(db *gorm.DB) (*GormLocker, error) {
	if err := db.AutoMigrate(&advisoryLock{}); err != nil {
		return nil, fmt.Errorf("migrate lock table: %w", err)
	}
	return &GormLocker{db: db, holder: uuid.NewString(), now: time.Now}, nil
}

// TryAcquire claims the named lock for ttl.
func (l *GormLocker) TryAcquire(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	now := l.now()
	row := advisoryLock{Name: name, Holder: l.holder, ExpiresAt: now.Add(ttl)}

	// Insert wins the lock outright; on conflict, steal only expired rows.
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"holder":     l.holder,
			"expires_at": row.ExpiresAt,
		}),
		Where: clause.Where{Exprs: []clause.Expression{
			clause.Or(
				clause.Lt{Column: clause.Column{Table: "advisory_locks", Name: "expires_at"}, Value: now},
				clause.Eq{Column: clause.Column{Table: "advisory_locks", Name: "holder"}, Value: l.holder},
			),
		}},
	}).Create(&row)
	if res.Error != nil {
		return false, fmt.Errorf("%w: acquire %s: %v", ErrStore, name, res.Error)
	}

	// The conflict clause may have matched nothing; confirm ownership.
	var current advisoryLock
	if err := l.db.WithContext(ctx).First(&current, "name = ?", name).Error; err != nil {
		return false, fmt.Errorf("%w: confirm %s: %v", ErrStore, name, err)
	}
	return current.Holder == l.holder && current.ExpiresAt.After(now), nil
}

// Release drops the lock if this locker still holds it.
func (l *GormLocker) Release(ctx context.Context, name string) error {
	err := l.db.WithContext(ctx).
		Where("name = ? AND holder = ?", name, l.holder).
		Delete(&advisoryLock{}).Error
	if err != nil {
		return fmt.Errorf("%w: release %s: %v", ErrStore, name, err)
	}
	return nil
}
