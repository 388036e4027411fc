package scheduler

import (
	"context"
	"testing"
)

type fakeBroadcaster struct {
	calls int
}

func (f *fakeBroadcaster) BroadcastDailyMenu(ctx context.Context) error {
	f.calls++
	return nil
}

func TestSchedulerAddJob(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("* * * * *", func() {}); err != nil {
		t.Errorf("Expected no error adding job, got %v", err)
	}
}

func TestSchedulerRejectsInvalidExpression(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	if err := s.AddJob("not a cron expr", func() {}); err == nil {
		t.Error("Expected error for invalid cron expression, got nil")
	}
}

func TestScheduleDailyMenuUsesDefaultSpec(t *testing.T) {
	t.Setenv("MENU_BROADCAST_CRON", "")
	s := NewScheduler()
	defer s.Stop()
	b := &fakeBroadcaster{}
	if err := s.ScheduleDailyMenu(b, ""); err != nil {
		t.Errorf("Expected no error scheduling daily menu, got %v", err)
	}
}

func TestScheduleDailyMenuExplicitSpec(t *testing.T) {
	s := NewScheduler()
	defer s.Stop()
	b := &fakeBroadcaster{}
	if err := s.ScheduleDailyMenu(b, "30 8 * * *"); err != nil {
		t.Errorf("Expected no error scheduling daily menu, got %v", err)
	}
}
