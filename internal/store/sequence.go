package store

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/urbangulal/urbangulal/internal/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// NextSequence atomically increments the named counter and returns the new
// value. The first call for a name returns 1. Pass a transaction handle to
// make the allocation part of a larger unit of work.
func NextSequence(ctx context.Context, db *gorm.DB, name string) (int64, error) {
	db = db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Counter{Name: name, UpdatedAt: time.Now()}).Error; err != nil {
		return 0, errors.Wrapf(err, "init counter %s", name)
	}
	var value int64
	if err := db.Raw("UPDATE counters SET value = value + 1, updated_at = ? WHERE name = ? RETURNING value",
		time.Now(), name).Scan(&value).Error; err != nil {
		return 0, errors.Wrapf(err, "increment counter %s", name)
	}
	if value == 0 {
		return 0, errors.Errorf("counter %s not incremented", name)
	}
	return value, nil
}

// EnsureSequenceAtLeast raises the counter to floor when it lags behind
// existing data, e.g. after a restore.
func EnsureSequenceAtLeast(ctx context.Context, db *gorm.DB, name string, floor int64) error {
	db = db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.Counter{Name: name, UpdatedAt: time.Now()}).Error; err != nil {
		return errors.Wrapf(err, "init counter %s", name)
	}
	return db.Model(&domain.Counter{}).
		Where("name = ? AND value < ?", name, floor).
		Updates(map[string]interface{}{"value": floor, "updated_at": time.Now()}).Error
}
