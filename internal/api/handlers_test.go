package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

const testVerifyToken = "secret-token"

type recordingProcessor struct {
	calls []*whatsapp.Incoming
}

func (p *recordingProcessor) ProcessMessage(ctx context.Context, in *whatsapp.Incoming) {
	p.calls = append(p.calls, in)
}

type recordingCloser struct {
	contacts []string
}

func (c *recordingCloser) SummarizeSession(ctx context.Context, contactNumber string) {
	c.contacts = append(c.contacts, contactNumber)
}

type nopSender struct{}

func (nopSender) SendMessage(ctx context.Context, to, body string) error { return nil }
func (nopSender) SendImage(ctx context.Context, to, imageURL, caption string) error {
	return nil
}
func (nopSender) TriggerFlow(ctx context.Context, params models.TriggerFlowParams, menuItems []whatsapp.FlowMenuItem) error {
	return nil
}

func newTestServer(t *testing.T, opts ...Option) (*Server, *recordingProcessor, *recordingCloser, *store.InMemoryStore) {
	t.Helper()
	st := store.NewInMemoryStore()
	proc := &recordingProcessor{}
	closer := &recordingCloser{}
	menuSvc := menu.NewService(st, nopSender{})
	opts = append([]Option{WithAddr(":0"), WithVerifyToken(testVerifyToken)}, opts...)
	srv, err := NewServer(proc, closer, menuSvc, st, opts...)
	if err != nil {
		t.Fatalf("NewServer returned error: %v", err)
	}
	return srv, proc, closer, st
}

func TestWebhookVerification(t *testing.T) {
	srv, _, _, _ := newTestServer(t)
	handler := srv.Handler()

	cases := []struct {
		name     string
		query    string
		wantCode int
		wantBody string
	}{
		{"missing params", "hub.mode=subscribe", http.StatusBadRequest, "Bad Request"},
		{"valid", "hub.mode=subscribe&hub.verify_token=" + testVerifyToken + "&hub.challenge=12345", http.StatusOK, "12345"},
		{"wrong token", "hub.mode=subscribe&hub.verify_token=nope&hub.challenge=12345", http.StatusForbidden, "Forbidden"},
		{"wrong mode", "hub.mode=unsubscribe&hub.verify_token=" + testVerifyToken + "&hub.challenge=12345", http.StatusForbidden, "Forbidden"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/webhook?"+tc.query, nil)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)
			if rr.Code != tc.wantCode {
				t.Errorf("expected %d, got %d", tc.wantCode, rr.Code)
			}
			if got := rr.Body.String(); got != tc.wantBody {
				t.Errorf("expected body %q, got %q", tc.wantBody, got)
			}
		})
	}
}

func TestWebhookPostDispatchesMessage(t *testing.T) {
	srv, proc, _, _ := newTestServer(t)

	payload := `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp",
			"contacts": [{"wa_id": "263771234567", "profile": {"name": "Jane"}}],
			"messages": [{"from": "263771234567", "id": "wamid.x", "type": "text", "text": {"body": "hello"}}]
		}}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if len(proc.calls) != 1 {
		t.Fatalf("expected 1 processed message, got %d", len(proc.calls))
	}
	in := proc.calls[0]
	if in.From != "263771234567" || in.Text != "hello" || in.ProfileName != "Jane" {
		t.Errorf("unexpected incoming message: %+v", in)
	}
}

func TestWebhookPostStatusUpdateAcksWithoutProcessing(t *testing.T) {
	srv, proc, _, _ := newTestServer(t)

	payload := `{
		"object": "whatsapp_business_account",
		"entry": [{"id": "1", "changes": [{"field": "messages", "value": {
			"messaging_product": "whatsapp"
		}}]}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(payload))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "Status update received" {
		t.Errorf("expected status-update ack, got %q", got)
	}
	if len(proc.calls) != 0 {
		t.Errorf("expected no processed messages, got %d", len(proc.calls))
	}
}

func TestWebhookPostMalformedJSONStillAcks(t *testing.T) {
	srv, proc, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("{not json"))
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for malformed payload, got %d", rr.Code)
	}
	if len(proc.calls) != 0 {
		t.Errorf("expected no processed messages, got %d", len(proc.calls))
	}
}

func TestEndSession(t *testing.T) {
	srv, _, closer, _ := newTestServer(t)

	form := url.Values{"From": {"+263771234567"}}
	req := httptest.NewRequest(http.MethodPost, "/end-session", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "Session ended and data saved." {
		t.Errorf("unexpected body %q", got)
	}
	if len(closer.contacts) != 1 || closer.contacts[0] != "+263771234567" {
		t.Errorf("expected session summarized for +263771234567, got %v", closer.contacts)
	}
}

func TestEndSessionRequiresFrom(t *testing.T) {
	srv, _, closer, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/end-session", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rr.Code)
	}
	if len(closer.contacts) != 0 {
		t.Errorf("expected no summarization, got %v", closer.contacts)
	}
}

func TestClearSessionDropsFlowState(t *testing.T) {
	srv, _, _, st := newTestServer(t)
	if err := st.SaveFlowState("+263771234567", models.FlowStateStart, nil); err != nil {
		t.Fatalf("SaveFlowState returned error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/clear-session?From=%2B263771234567", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if got := rr.Body.String(); got != "Session has been cleared." {
		t.Errorf("unexpected body %q", got)
	}
	state, _, err := st.GetFlowState("+263771234567")
	if err != nil {
		t.Fatalf("GetFlowState returned error: %v", err)
	}
	if state != models.FlowStateNone {
		t.Errorf("expected flow state cleared, got %q", state)
	}
}

func TestHealth(t *testing.T) {
	srv, _, _, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var resp models.APIResponse
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp.Status != string(models.APIStatusOK) {
		t.Errorf("expected ok status, got %q", resp.Status)
	}
}
