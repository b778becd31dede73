package report

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/urbangulal/urbangulal/internal/app"
	"github.com/urbangulal/urbangulal/internal/orders"
	"go.uber.org/zap"
)

// Subscribe refreshes the reports after every committed order change.
func (g *Generator) Subscribe(hooks *orders.Hooks) error {
	refresh := func(orders.OrderEvent) { g.Refresh() }
	if err := hooks.OnCreated("report-refresh", refresh); err != nil {
		return err
	}
	return hooks.OnUpdated("report-refresh", refresh)
}

// Schedule runs the report job every day at the given local time.
func (g *Generator) Schedule(sched *cron.Cron, at string) error {
	_, err := app.ScheduleDaily(sched, "daily-report", at, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		if err := g.Run(ctx, time.Now()); err != nil {
			zap.L().Error("daily report failed", zap.Error(err))
		}
	})
	return err
}
