package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
)

// DefaultInactivityThreshold is how long a customer must be silent before
// their conversation is collapsed into a rolling summary.
const DefaultInactivityThreshold = 30 * time.Minute

// summaryTurnLimit bounds how many recent turns feed the summarizer.
const summaryTurnLimit = 10

// Summarizer condenses a conversation into a rolling summary.
type Summarizer interface {
	Summarize(ctx context.Context, previousSummary, historyText, preferencesText string) (string, error)
}

// Supervisor performs the inactivity check that runs at the start of every
// inbound message. It is synchronous and on the hot path, so repository
// failures are swallowed: a broken store must never block message handling.
type Supervisor struct {
	store      store.Store
	summarizer Summarizer
	threshold  time.Duration
	now        func() time.Time
}

// NewSupervisor creates an inactivity supervisor. A non-positive threshold
// falls back to DefaultInactivityThreshold.
func NewSupervisor(st store.Store, summarizer Summarizer, threshold time.Duration) *Supervisor {
	if threshold <= 0 {
		threshold = DefaultInactivityThreshold
	}
	return &Supervisor{store: st, summarizer: summarizer, threshold: threshold, now: time.Now}
}

// CheckInactivity summarizes and stores the customer's session if their last
// logged message is older than the threshold. No logged activity is a no-op.
// All failures are logged and swallowed.
func (s *Supervisor) CheckInactivity(ctx context.Context, contactNumber string) {
	last, err := s.store.LastActivity(contactNumber)
	if err != nil {
		slog.Error("Supervisor.CheckInactivity failed to load last activity", "error", err, "contact", contactNumber)
		return
	}
	if last == nil {
		return
	}
	elapsed := s.now().Sub(*last)
	if elapsed <= s.threshold {
		return
	}
	slog.Info("Supervisor.CheckInactivity summarizing inactive session", "contact", contactNumber, "elapsed", elapsed)
	s.SummarizeSession(ctx, contactNumber)
}

// SummarizeSession builds a new rolling summary from the stored summary,
// recent turns, and stored preferences, then upserts it. Also used by the
// explicit end-session endpoint.
func (s *Supervisor) SummarizeSession(ctx context.Context, contactNumber string) {
	previous, err := s.store.GetMemory(contactNumber, models.SessionSummaryKey)
	if err != nil {
		slog.Error("Supervisor.SummarizeSession failed to load stored summary", "error", err, "contact", contactNumber)
		return
	}

	turns, err := s.store.GetRecentTurns(contactNumber, summaryTurnLimit)
	if err != nil {
		slog.Error("Supervisor.SummarizeSession failed to load recent turns", "error", err, "contact", contactNumber)
		return
	}
	if len(turns) == 0 && previous == "" {
		return
	}

	prefs, err := s.store.GetUserPreferences(contactNumber)
	if err != nil {
		slog.Error("Supervisor.SummarizeSession failed to load preferences", "error", err, "contact", contactNumber)
		return
	}

	summary, err := s.summarizer.Summarize(ctx, previous, formatHistory(turns), formatPreferences(prefs))
	if err != nil {
		slog.Error("Supervisor.SummarizeSession summarizer failed", "error", err, "contact", contactNumber)
		return
	}
	if err := s.store.UpsertMemory(contactNumber, models.SessionSummaryKey, summary); err != nil {
		slog.Error("Supervisor.SummarizeSession failed to store summary", "error", err, "contact", contactNumber)
		return
	}
	// The session is torn down with the summary in place: an abandoned
	// half-finished order must not resume mid-flow hours later.
	if err := s.store.DeleteFlowState(contactNumber); err != nil {
		slog.Error("Supervisor.SummarizeSession failed to clear flow state", "error", err, "contact", contactNumber)
	}
	slog.Debug("Supervisor.SummarizeSession summary updated", "contact", contactNumber, "length", len(summary))
}

func formatHistory(turns []models.ConversationTurn) string {
	lines := make([]string, 0, len(turns))
	for _, t := range turns {
		lines = append(lines, fmt.Sprintf("User: %s | Bot: %s", t.Message, t.BotReply))
	}
	return strings.Join(lines, "\n")
}

func formatPreferences(prefs map[string]string) string {
	keys := make([]string, 0, len(prefs))
	for k := range prefs {
		if k == models.SessionSummaryKey {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, fmt.Sprintf("%s: %s", k, prefs[k]))
	}
	return strings.Join(lines, "\n")
}
