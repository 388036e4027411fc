package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// Screen names of the WhatsApp order flow. The client posts an empty screen
// on the initial data fetch.
const (
	screenRecommend       = "RECOMMEND"
	screenDeliveryDetails = "DELIVERY_DETAILS"
	screenSuccess         = "SUCCESS"
)

// flowDataHandler implements the WhatsApp Flow data-exchange endpoint: the
// request body is an RSA-wrapped, AES-GCM-sealed JSON document, and the
// response is the next screen sealed under the same session key with the
// bitwise-inverted IV.
func (s *Server) flowDataHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if s.privateKey == nil {
		slog.Error("Server.flowDataHandler: no flow private key configured")
		w.WriteHeader(http.StatusServiceUnavailable)
		return
	}

	var req flowDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Server.flowDataHandler: failed to decode request", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	plaintext, sess, err := decryptFlowRequest(s.privateKey, req)
	if err != nil {
		// 421 tells the client to refresh the public key and retry.
		slog.Error("Server.flowDataHandler: failed to decrypt request", "error", err)
		w.WriteHeader(http.StatusMisdirectedRequest)
		return
	}

	var body map[string]interface{}
	response := s.routeFlowScreen(plaintext, &body)
	if body != nil {
		slog.Info("Server.flowDataHandler: routing flow screen", "screen", stringField(body, "screen"))
	}

	responseJSON, err := json.Marshal(response)
	if err != nil {
		slog.Error("Server.flowDataHandler: failed to marshal response", "error", err)
		responseJSON = []byte(`{"version":"3.0","data":{"status":"active"}}`)
	}
	encrypted, err := encryptFlowResponse(sess, responseJSON)
	if err != nil {
		slog.Error("Server.flowDataHandler: failed to encrypt response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	writeTextResponse(w, http.StatusOK, encrypted)
}

// routeFlowScreen maps the decrypted request to the next screen document.
// Malformed payloads fall back to the keep-alive response so the flow client
// keeps the session open.
func (s *Server) routeFlowScreen(plaintext []byte, out *map[string]interface{}) map[string]interface{} {
	keepAlive := map[string]interface{}{
		"version": "3.0",
		"data":    map[string]interface{}{"status": "active"},
	}

	var body map[string]interface{}
	if err := json.Unmarshal(plaintext, &body); err != nil {
		slog.Error("Server.routeFlowScreen: failed to decode flow payload", "error", err)
		return keepAlive
	}
	*out = body

	version := stringField(body, "version")
	data, _ := body["data"].(map[string]interface{})

	switch stringField(body, "screen") {
	case "":
		// Initial fetch: offer the currently available menu.
		return map[string]interface{}{
			"version": version,
			"screen":  screenRecommend,
			"data": map[string]interface{}{
				"menu_items": s.menu.FlowMenuItems(),
			},
		}
	case screenRecommend:
		return map[string]interface{}{
			"version": version,
			"screen":  screenDeliveryDetails,
			"data": map[string]interface{}{
				"screen_0_Order_Item_0": rawField(data, "screen_0_Order_Item_0"),
				"screen_0_Delivery_1":   rawField(data, "screen_0_Delivery_1"),
			},
		}
	default:
		return map[string]interface{}{
			"version": version,
			"screen":  screenSuccess,
			"data": map[string]interface{}{
				"extension_message_response": map[string]interface{}{
					"params": map[string]interface{}{
						"flow_token":            "token",
						"screen_1_Name_0":       rawField(data, "screen_1_Name_0"),
						"screen_1_Location_1":   stringField(data, "screen_1_location"),
						"screen_0_Order_Item_0": rawField(data, "screen_0_Order_Item_0"),
						"screen_0_Delivery_1":   rawField(data, "screen_0_Delivery_1"),
					},
				},
			},
		}
	}
}

func stringField(m map[string]interface{}, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

// rawField passes a submitted answer through unchanged; checkbox groups
// arrive as arrays, text inputs as strings. Missing keys become "".
func rawField(m map[string]interface{}, key string) interface{} {
	if m == nil {
		return ""
	}
	if v, ok := m[key]; ok {
		return v
	}
	return ""
}
