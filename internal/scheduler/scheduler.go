// Package scheduler provides cron-based background jobs for the restaurant
// assistant, such as the daily menu broadcast.
package scheduler

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/util"
)

// DefaultDailyMenuSpec fires the menu broadcast every day at 09:00 server
// time. Override with the MENU_BROADCAST_CRON environment variable.
const DefaultDailyMenuSpec = "0 9 * * *"

// MenuBroadcaster sends the day's menu to every known customer. Implemented
// by menu.Service.
type MenuBroadcaster interface {
	BroadcastDailyMenu(ctx context.Context) error
}

// Scheduler provides cron-based job scheduling.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates and starts a cron scheduler.
func NewScheduler() *Scheduler {
	// Standard 5-field cron parser (min, hour, dom, month, dow) with panic
	// recovery around jobs.
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	c.Start()
	return &Scheduler{cron: c}
}

// AddJob schedules a task using the provided cron expression.
// It returns an error if the expression is invalid.
func (s *Scheduler) AddJob(expr string, task func()) error {
	_, err := s.cron.AddFunc(expr, task)
	return err
}

// ScheduleDailyMenu registers the daily menu broadcast. The cron expression
// falls back to MENU_BROADCAST_CRON, then to DefaultDailyMenuSpec.
func (s *Scheduler) ScheduleDailyMenu(broadcaster MenuBroadcaster, expr string) error {
	if expr == "" {
		expr = util.GetEnvWithDefault("MENU_BROADCAST_CRON", DefaultDailyMenuSpec)
	}
	slog.Info("Scheduler.ScheduleDailyMenu: registering daily menu broadcast", "cron", expr)
	return s.AddJob(expr, func() {
		if err := broadcaster.BroadcastDailyMenu(context.Background()); err != nil {
			slog.Error("Scheduler.ScheduleDailyMenu: menu broadcast failed", "error", err)
		}
	})
}

// Stop stops the cron scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
