package app

import (
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urbangulal/urbangulal/internal/domain"
	"go.uber.org/zap"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const notificationLogDays = 180

func (a *Application) initJob() {
	loc, err := time.LoadLocation(a.appConfig.System.Location)
	if err != nil {
		loc = time.Local
	}
	a.sched = cron.New(cron.WithLocation(loc), cron.WithParser(cronParser))

	id, err := a.sched.AddFunc("@daily", a.SchedClearExpireData)
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
		return
	}
	nameJob(a.sched, id, "clear-expired-data")
}

// SchedClearExpireData prunes old notification attempts.
func (a *Application) SchedClearExpireData() {
	defer func() {
		if err := recover(); err != nil {
			zap.S().Error(err)
		}
	}()
	res := a.gormDB.
		Where("created_at < ?", time.Now().Add(-time.Hour*24*notificationLogDays)).
		Delete(&domain.NotificationLog{})
	if res.Error != nil {
		zap.L().Error("clear notification log failed", zap.Error(res.Error))
		return
	}
	if res.RowsAffected > 0 {
		zap.L().Info("notification log pruned", zap.Int64("rows", res.RowsAffected))
	}
}
