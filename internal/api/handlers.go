package api

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

// webhookHandler serves Meta's hub verification handshake on GET and inbound
// message delivery on POST.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	switch r.Method {
	case http.MethodGet:
		s.verifyWebhook(w, r)
	case http.MethodPost:
		s.receiveWebhook(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (s *Server) verifyWebhook(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	mode := q.Get("hub.mode")
	token := q.Get("hub.verify_token")
	challenge := q.Get("hub.challenge")
	slog.Info("Server.verifyWebhook: received verification", "mode", mode)

	if mode == "" || token == "" || challenge == "" {
		slog.Warn("Server.verifyWebhook: missing parameters")
		writeTextResponse(w, http.StatusBadRequest, "Bad Request")
		return
	}
	if mode == "subscribe" && s.verifyToken != "" && token == s.verifyToken {
		slog.Info("Server.verifyWebhook: webhook verified successfully")
		writeTextResponse(w, http.StatusOK, challenge)
		return
	}
	slog.Warn("Server.verifyWebhook: verification failed")
	writeTextResponse(w, http.StatusForbidden, "Forbidden")
}

// receiveWebhook acknowledges every delivery with 200 so Meta does not retry;
// processing failures are logged, never surfaced.
func (s *Server) receiveWebhook(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			slog.Error("Server.receiveWebhook: panic while processing webhook", "panic", rec)
			writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event received", nil))
		}
	}()

	var payload whatsapp.WebhookPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		slog.Warn("Server.receiveWebhook: failed to decode webhook payload", "error", err)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event received", nil))
		return
	}

	in, ok, err := whatsapp.ExtractIncoming(payload)
	if err != nil {
		slog.Warn("Server.receiveWebhook: failed to extract message", "error", err)
		writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Event received", nil))
		return
	}
	if !ok {
		writeTextResponse(w, http.StatusOK, "Status update received")
		return
	}

	s.processor.ProcessMessage(r.Context(), in)
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Message processed", nil))
}

// endSessionHandler summarizes the customer's session and persists the recap.
func (s *Server) endSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := r.ParseForm(); err != nil {
		slog.Warn("Server.endSessionHandler: failed to parse form", "error", err)
		writeTextResponse(w, http.StatusBadRequest, "Error ending session.")
		return
	}
	from := r.FormValue("From")
	if from == "" {
		writeTextResponse(w, http.StatusBadRequest, "Error ending session.")
		return
	}

	s.sessions.SummarizeSession(r.Context(), from)
	slog.Info("Server.endSessionHandler: session ended", "from", from)
	writeTextResponse(w, http.StatusOK, "Session ended and data saved.")
}

// clearSessionHandler drops the customer's in-flight flow state. Without a
// From parameter it is a no-op acknowledgement.
func (s *Server) clearSessionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	from := r.URL.Query().Get("From")
	if from != "" {
		if err := s.store.DeleteFlowState(from); err != nil {
			slog.Error("Server.clearSessionHandler: failed to clear flow state", "error", err, "from", from)
			writeTextResponse(w, http.StatusInternalServerError, "Error clearing session.")
			return
		}
	}
	writeTextResponse(w, http.StatusOK, "Session has been cleared.")
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
