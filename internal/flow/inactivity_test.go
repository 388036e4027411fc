package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

type fakeSummarizer struct {
	summary string
	err     error
	calls   int

	gotPrevious    string
	gotHistory     string
	gotPreferences string
}

func (f *fakeSummarizer) Summarize(ctx context.Context, previousSummary, historyText, preferencesText string) (string, error) {
	f.calls++
	f.gotPrevious = previousSummary
	f.gotHistory = historyText
	f.gotPreferences = preferencesText
	return f.summary, f.err
}

type brokenActivityStore struct {
	store.Store
}

func (brokenActivityStore) LastActivity(contactNumber string) (*time.Time, error) {
	return nil, errors.New("connection refused")
}

func TestCheckInactivityNoHistoryIsNoop(t *testing.T) {
	st := store.NewInMemoryStore()
	summarizer := &fakeSummarizer{summary: "recap"}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.CheckInactivity(context.Background(), testContact)
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times, want 0 for a customer with no history", summarizer.calls)
	}
}

func TestCheckInactivityFreshActivityIsNoop(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.LogConversation(models.ConversationTurn{ContactNumber: testContact, Message: "hi", BotReply: "hello"}); err != nil {
		t.Fatalf("LogConversation: %v", err)
	}
	summarizer := &fakeSummarizer{summary: "recap"}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.CheckInactivity(context.Background(), testContact)
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times, want 0 for fresh activity", summarizer.calls)
	}
}

func TestCheckInactivitySummarizesStaleSession(t *testing.T) {
	st := store.NewInMemoryStore()
	stale := time.Now().Add(-2 * time.Hour)
	if err := st.LogConversation(models.ConversationTurn{
		ContactNumber: testContact, Message: "hi", BotReply: "hello", Timestamp: stale,
	}); err != nil {
		t.Fatalf("LogConversation: %v", err)
	}
	if err := st.UpsertMemory(testContact, models.SessionSummaryKey, "old recap"); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}
	if err := st.UpsertMemory(testContact, "favorite_drink", "mojito"); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}

	summarizer := &fakeSummarizer{summary: "new recap"}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.CheckInactivity(context.Background(), testContact)
	if summarizer.calls != 1 {
		t.Fatalf("summarizer called %d times, want 1", summarizer.calls)
	}
	if summarizer.gotPrevious != "old recap" {
		t.Errorf("previous summary = %q, want %q", summarizer.gotPrevious, "old recap")
	}
	if summarizer.gotHistory != "User: hi | Bot: hello" {
		t.Errorf("history = %q", summarizer.gotHistory)
	}
	if summarizer.gotPreferences != "favorite_drink: mojito" {
		t.Errorf("preferences = %q; the rolling summary key must be excluded", summarizer.gotPreferences)
	}

	stored, err := st.GetMemory(testContact, models.SessionSummaryKey)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if stored != "new recap" {
		t.Errorf("stored summary = %q, want %q", stored, "new recap")
	}
}

func TestCheckInactivityClearsAbandonedFlowState(t *testing.T) {
	st := store.NewInMemoryStore()
	stale := time.Now().Add(-2 * time.Hour)
	if err := st.LogConversation(models.ConversationTurn{
		ContactNumber: testContact, Message: "order: bbq ribs", BotReply: "delivery?", Timestamp: stale,
	}); err != nil {
		t.Fatalf("LogConversation: %v", err)
	}
	draft := &models.OrderDraft{Items: []string{"bbq ribs"}}
	if err := st.SaveFlowState(testContact, models.FlowStateDeliveryConfirmation, draft); err != nil {
		t.Fatalf("SaveFlowState: %v", err)
	}

	summarizer := &fakeSummarizer{summary: "recap"}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.CheckInactivity(context.Background(), testContact)

	stored, err := st.GetMemory(testContact, models.SessionSummaryKey)
	if err != nil {
		t.Fatalf("GetMemory: %v", err)
	}
	if stored != "recap" {
		t.Errorf("stored summary = %q, want %q", stored, "recap")
	}
	state, gotDraft, err := st.GetFlowState(testContact)
	if err != nil {
		t.Fatalf("GetFlowState: %v", err)
	}
	if state != models.FlowStateNone {
		t.Errorf("flow state = %q, want cleared after summarization", state)
	}
	if gotDraft != nil {
		t.Errorf("draft = %+v, want nil after summarization", gotDraft)
	}
}

func TestSummarizeSessionKeepsFlowStateOnSummarizerFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.UpsertMemory(testContact, models.SessionSummaryKey, "old recap"); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}
	if err := st.SaveFlowState(testContact, models.FlowStateCollectName, &models.OrderDraft{Items: []string{"mojito"}}); err != nil {
		t.Fatalf("SaveFlowState: %v", err)
	}
	summarizer := &fakeSummarizer{err: errors.New("model overloaded")}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.SummarizeSession(context.Background(), testContact)

	state, _, err := st.GetFlowState(testContact)
	if err != nil {
		t.Fatalf("GetFlowState: %v", err)
	}
	if state != models.FlowStateCollectName {
		t.Errorf("flow state = %q, want kept when no summary was written", state)
	}
}

func TestCheckInactivitySwallowsRepositoryFailure(t *testing.T) {
	summarizer := &fakeSummarizer{summary: "recap"}
	sup := NewSupervisor(brokenActivityStore{store.NewInMemoryStore()}, summarizer, DefaultInactivityThreshold)

	// Must not panic and must not summarize.
	sup.CheckInactivity(context.Background(), testContact)
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times, want 0 on repository failure", summarizer.calls)
	}
}

func TestSummarizeSessionSkipsEmptySession(t *testing.T) {
	st := store.NewInMemoryStore()
	summarizer := &fakeSummarizer{summary: "recap"}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.SummarizeSession(context.Background(), testContact)
	if summarizer.calls != 0 {
		t.Errorf("summarizer called %d times, want 0 with no turns and no prior summary", summarizer.calls)
	}
}

func TestSummarizeSessionKeepsOldSummaryOnFailure(t *testing.T) {
	st := store.NewInMemoryStore()
	if err := st.UpsertMemory(testContact, models.SessionSummaryKey, "old recap"); err != nil {
		t.Fatalf("UpsertMemory: %v", err)
	}
	summarizer := &fakeSummarizer{err: errors.New("model overloaded")}
	sup := NewSupervisor(st, summarizer, DefaultInactivityThreshold)

	sup.SummarizeSession(context.Background(), testContact)
	stored, _ := st.GetMemory(testContact, models.SessionSummaryKey)
	if stored != "old recap" {
		t.Errorf("stored summary = %q, want the old recap untouched on summarizer failure", stored)
	}
}
