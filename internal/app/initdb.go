package app

import (
	"context"

	"github.com/urbangulal/urbangulal/internal/domain"
	"github.com/urbangulal/urbangulal/internal/store"
	"go.uber.org/zap"
)

// checkCounters makes sure the sequence rows exist and are not behind the
// data already stored.
func (a *Application) checkCounters() {
	ctx := context.Background()

	var maxOrder int64
	if err := a.gormDB.Model(&domain.Order{}).Select("COALESCE(MAX(order_id), 0)").Scan(&maxOrder).Error; err != nil {
		zap.L().Error("failed to query max order id", zap.Error(err))
	}
	if err := store.EnsureSequenceAtLeast(ctx, a.gormDB, domain.CounterOrderID, maxOrder); err != nil {
		zap.L().Error("failed to init order counter", zap.Error(err))
	}

	var maxUser int64
	if err := a.gormDB.Model(&domain.User{}).Select("COALESCE(MAX(user_id), 0)").Scan(&maxUser).Error; err != nil {
		zap.L().Error("failed to query max user id", zap.Error(err))
	}
	if err := store.EnsureSequenceAtLeast(ctx, a.gormDB, domain.CounterUserID, maxUser); err != nil {
		zap.L().Error("failed to init user counter", zap.Error(err))
	}
	zap.L().Info("counters checked", zap.Int64("max_order_id", maxOrder), zap.Int64("max_user_id", maxUser))
}
