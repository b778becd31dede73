package app

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// DailySpec converts a "HH:MM" wall-clock time into a cron spec.
func DailySpec(at string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("invalid daily time %q: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// ScheduleDaily registers fn to run once a day at the given local time.
// Panics inside fn are logged and swallowed.
func ScheduleDaily(sched *cron.Cron, name, at string, fn func()) (cron.EntryID, error) {
	spec, err := DailySpec(at)
	if err != nil {
		return 0, err
	}
	id, err := sched.AddFunc(spec, func() {
		defer func() {
			if err := recover(); err != nil {
				zap.L().Error("scheduled job panic", zap.String("job", name), zap.Any("error", err))
			}
		}()
		start := time.Now()
		fn()
		zap.L().Info("scheduled job done", zap.String("job", name), zap.Duration("took", time.Since(start)))
	})
	if err != nil {
		return 0, err
	}
	nameJob(sched, id, name)
	zap.L().Info("scheduled daily job", zap.String("job", name), zap.String("at", at), zap.String("spec", spec))
	return id, nil
}

type jobKey struct {
	sched *cron.Cron
	id    cron.EntryID
}

var jobNames sync.Map

func nameJob(sched *cron.Cron, id cron.EntryID, name string) {
	jobNames.Store(jobKey{sched, id}, name)
}

// JobInfo describes one scheduled entry.
type JobInfo struct {
	ID   int       `json:"id"`
	Name string    `json:"name"`
	Next time.Time `json:"next"`
	Prev time.Time `json:"prev,omitempty"`
}

// ListJobs returns the entries of sched ordered by next run.
func ListJobs(sched *cron.Cron) []JobInfo {
	if sched == nil {
		return []JobInfo{}
	}
	entries := sched.Entries()
	out := make([]JobInfo, 0, len(entries))
	for _, e := range entries {
		info := JobInfo{ID: int(e.ID), Next: e.Next, Prev: e.Prev}
		if v, ok := jobNames.Load(jobKey{sched, e.ID}); ok {
			info.Name = v.(string)
		}
		if info.Next.IsZero() {
			info.Next = e.Schedule.Next(time.Now())
		}
		out = append(out, info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Next.Before(out[j].Next) })
	return out
}
