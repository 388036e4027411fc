// Package whatsapp wraps the Meta WhatsApp Cloud API for the Star
// Restaurant bot.
//
// It provides methods for sending text messages, images, and interactive
// WhatsApp Flows, plus types for decoding incoming webhook payloads.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/models"
)

// Constants for the Cloud API client configuration.
const (
	// DefaultAPIBaseURL is the Graph API root used for outbound messages.
	DefaultAPIBaseURL = "https://graph.facebook.com/v18.0"
	// DefaultHTTPTimeout bounds every outbound Graph API request.
	DefaultHTTPTimeout = 10 * time.Second
	// FlowMessageVersion is the interactive flow message version Meta expects.
	FlowMessageVersion = "3"
	// FlowEntryScreen is the first screen of every published flow.
	FlowEntryScreen = "RECOMMEND"
)

// MessageSender is an interface for sending WhatsApp messages (for
// production and testing).
type MessageSender interface {
	SendMessage(ctx context.Context, to string, body string) error
	SendImage(ctx context.Context, to string, imageURL string, caption string) error
	TriggerFlow(ctx context.Context, params models.TriggerFlowParams, menuItems []FlowMenuItem) error
}

// FlowMenuItem is a selectable menu entry injected into the order flow's
// entry screen.
type FlowMenuItem struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Opts holds configuration options for the Cloud API client.
type Opts struct {
	AccessToken   string
	PhoneNumberID string
	APIBaseURL    string
	HTTPClient    *http.Client
	FlowIDs       map[models.FlowName]string
}

// Option defines a configuration option for the Cloud API client.
type Option func(*Opts)

// WithAccessToken sets the Cloud API bearer token.
func WithAccessToken(token string) Option {
	return func(o *Opts) {
		o.AccessToken = token
	}
}

// WithPhoneNumberID sets the business phone number ID messages are sent from.
func WithPhoneNumberID(id string) Option {
	return func(o *Opts) {
		o.PhoneNumberID = id
	}
}

// WithAPIBaseURL overrides the Graph API root. Used by tests.
func WithAPIBaseURL(url string) Option {
	return func(o *Opts) {
		o.APIBaseURL = url
	}
}

// WithHTTPClient overrides the HTTP client used for Graph API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(o *Opts) {
		o.HTTPClient = client
	}
}

// WithFlowID registers the published flow ID for a flow name.
func WithFlowID(name models.FlowName, id string) Option {
	return func(o *Opts) {
		if o.FlowIDs == nil {
			o.FlowIDs = make(map[models.FlowName]string)
		}
		o.FlowIDs[name] = id
	}
}

// flowIDEnvVars maps flow names to the environment variables that carry
// their published flow IDs.
var flowIDEnvVars = map[models.FlowName]string{
	models.FlowNameReservation:       "WHATSAPP_FLOW_RESERVATION",
	models.FlowNameReservationRating: "WHATSAPP_FLOW_RESERVATION_RATING",
	models.FlowNameOrderRating:       "WHATSAPP_FLOW_ORDER_RATING",
	models.FlowNameOrder:             "WHATSAPP_FLOW_ORDER",
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
	flowIDs       map[models.FlowName]string
}

// NewClient creates a new Cloud API client, applying any provided options.
// Token, phone number ID, and flow IDs fall back to environment variables
// (WHATSAPP_ACCESS_TOKEN, WHATSAPP_PHONE_NUMBER_ID, WHATSAPP_FLOW_*).
func NewClient(opts ...Option) (*Client, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("WhatsApp NewClient options set", "AccessToken_set", cfg.AccessToken != "", "PhoneNumberID_set", cfg.PhoneNumberID != "")

	if cfg.AccessToken == "" {
		cfg.AccessToken = os.Getenv("WHATSAPP_ACCESS_TOKEN")
	}
	if cfg.AccessToken == "" {
		return nil, fmt.Errorf("WhatsApp access token not set")
	}
	if cfg.PhoneNumberID == "" {
		cfg.PhoneNumberID = os.Getenv("WHATSAPP_PHONE_NUMBER_ID")
	}
	if cfg.PhoneNumberID == "" {
		return nil, fmt.Errorf("WhatsApp phone number ID not set")
	}
	if cfg.APIBaseURL == "" {
		cfg.APIBaseURL = DefaultAPIBaseURL
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}

	flowIDs := make(map[models.FlowName]string)
	for name, envVar := range flowIDEnvVars {
		if id := os.Getenv(envVar); id != "" {
			flowIDs[name] = id
		}
	}
	for name, id := range cfg.FlowIDs {
		flowIDs[name] = id
	}

	return &Client{
		accessToken:   cfg.AccessToken,
		phoneNumberID: cfg.PhoneNumberID,
		baseURL:       cfg.APIBaseURL,
		httpClient:    cfg.HTTPClient,
		flowIDs:       flowIDs,
	}, nil
}

// SendMessage sends a plain text message to the given phone number.
func (c *Client) SendMessage(ctx context.Context, to string, body string) error {
	if to == "" {
		return models.ErrEmptyRecipient
	}
	if body == "" {
		return models.ErrEmptyMessage
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "text",
		"text":              map[string]string{"body": body},
	}
	if err := c.post(ctx, payload); err != nil {
		slog.Error("WhatsApp SendMessage failed", "error", err, "to", to)
		return fmt.Errorf("failed to send message to %s: %w", to, err)
	}
	slog.Debug("WhatsApp SendMessage succeeded", "to", to, "length", len(body))
	return nil
}

// SendImage sends an image by URL with an optional caption.
func (c *Client) SendImage(ctx context.Context, to string, imageURL string, caption string) error {
	if to == "" {
		return models.ErrEmptyRecipient
	}
	if imageURL == "" {
		return fmt.Errorf("image URL cannot be empty")
	}
	image := map[string]string{"link": imageURL}
	if caption != "" {
		image["caption"] = caption
	}
	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                to,
		"type":              "image",
		"image":             image,
	}
	if err := c.post(ctx, payload); err != nil {
		slog.Error("WhatsApp SendImage failed", "error", err, "to", to)
		return fmt.Errorf("failed to send image to %s: %w", to, err)
	}
	return nil
}

// TriggerFlow sends an interactive flow message that opens the named
// published flow. Menu items seed the entry screen so the customer can pick
// dishes without typing.
func (c *Client) TriggerFlow(ctx context.Context, params models.TriggerFlowParams, menuItems []FlowMenuItem) error {
	if err := params.Validate(); err != nil {
		return err
	}
	flowID, ok := c.flowIDs[params.FlowName]
	if !ok {
		return fmt.Errorf("no flow ID configured for flow %q", params.FlowName)
	}
	if menuItems == nil {
		menuItems = []FlowMenuItem{}
	}

	payload := map[string]interface{}{
		"messaging_product": "whatsapp",
		"to":                params.ToNumber,
		"type":              "interactive",
		"interactive": map[string]interface{}{
			"type": "flow",
			"body": map[string]string{"text": params.Message},
			"action": map[string]interface{}{
				"name": "flow",
				"parameters": map[string]interface{}{
					"flow_message_version": FlowMessageVersion,
					"flow_id":              flowID,
					"flow_cta":             params.FlowCTA,
					"flow_token":           "unused",
					"mode":                 "published",
					"flow_action":          "navigate",
					"flow_action_payload": map[string]interface{}{
						"screen": FlowEntryScreen,
						"data":   map[string]interface{}{"menu_items": menuItems},
					},
				},
			},
		},
	}
	if err := c.post(ctx, payload); err != nil {
		slog.Error("WhatsApp TriggerFlow failed", "error", err, "to", params.ToNumber, "flow", params.FlowName)
		return fmt.Errorf("failed to trigger flow %s for %s: %w", params.FlowName, params.ToNumber, err)
	}
	slog.Info("WhatsApp TriggerFlow succeeded", "to", params.ToNumber, "flow", params.FlowName)
	return nil
}

func (c *Client) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}
	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("graph API returned status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
