// Package notify delivers admin alerts (new orders, new reservations) over
// Twilio WhatsApp, out of band from the customer-facing Cloud API channel.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// Notifier sends alerts to the restaurant admin.
type Notifier interface {
	NotifyAdmin(ctx context.Context, message string) error
}

// Opts holds configuration options for the Twilio notifier.
type Opts struct {
	AccountSID  string
	AuthToken   string
	FromWhats   string
	AdminNumber string
}

// Option defines a configuration option for the Twilio notifier.
type Option func(*Opts)

// WithAccountSID sets the Twilio account SID.
func WithAccountSID(sid string) Option {
	return func(o *Opts) { o.AccountSID = sid }
}

// WithAuthToken sets the Twilio auth token.
func WithAuthToken(token string) Option {
	return func(o *Opts) { o.AuthToken = token }
}

// WithFromWhats sets the sending WhatsApp number ("whatsapp:+123...").
func WithFromWhats(from string) Option {
	return func(o *Opts) { o.FromWhats = from }
}

// WithAdminNumber sets the admin's WhatsApp number alerts go to.
func WithAdminNumber(number string) Option {
	return func(o *Opts) { o.AdminNumber = number }
}

// TwilioNotifier sends admin alerts through the Twilio REST API.
type TwilioNotifier struct {
	client      *twilio.RestClient
	fromWhats   string
	adminNumber string
}

// NewTwilioNotifier creates a Twilio-backed notifier. Credentials fall back
// to TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN, TWILIO_FROM_NUMBER, and
// ADMIN_WHATSAPP_NUMBER environment variables.
func NewTwilioNotifier(opts ...Option) (*TwilioNotifier, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.AccountSID == "" {
		cfg.AccountSID = os.Getenv("TWILIO_ACCOUNT_SID")
	}
	if cfg.AuthToken == "" {
		cfg.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	}
	if cfg.FromWhats == "" {
		cfg.FromWhats = os.Getenv("TWILIO_FROM_NUMBER")
	}
	if cfg.AdminNumber == "" {
		cfg.AdminNumber = os.Getenv("ADMIN_WHATSAPP_NUMBER")
	}
	slog.Debug("Twilio notifier config loaded",
		"AccountSID_set", cfg.AccountSID != "",
		"AuthToken_set", cfg.AuthToken != "",
		"FromWhats_set", cfg.FromWhats != "",
		"AdminNumber_set", cfg.AdminNumber != "")

	if cfg.AccountSID == "" || cfg.AuthToken == "" {
		return nil, fmt.Errorf("account SID and auth token must be provided")
	}
	if cfg.FromWhats == "" {
		return nil, fmt.Errorf("fromWhats number must be provided")
	}
	if cfg.AdminNumber == "" {
		return nil, fmt.Errorf("admin number must be provided")
	}

	client := twilio.NewRestClientWithParams(
		twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		},
	)

	return &TwilioNotifier{
		client:      client,
		fromWhats:   cfg.FromWhats,
		adminNumber: cfg.AdminNumber,
	}, nil
}

// NotifyAdmin sends a WhatsApp alert to the configured admin number.
func (n *TwilioNotifier) NotifyAdmin(ctx context.Context, message string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(n.fromWhats)
	params.SetTo(n.adminNumber)
	params.SetBody(message)

	_, err := n.client.Api.CreateMessage(params)
	if err != nil {
		slog.Error("TwilioNotifier.NotifyAdmin failed", "error", err)
		return fmt.Errorf("failed to notify admin: %w", err)
	}
	slog.Debug("TwilioNotifier.NotifyAdmin succeeded", "length", len(message))
	return nil
}

// NoopNotifier discards alerts. Used when Twilio credentials are not
// configured and in tests.
type NoopNotifier struct{}

// NotifyAdmin logs and drops the alert.
func (NoopNotifier) NotifyAdmin(ctx context.Context, message string) error {
	slog.Debug("NoopNotifier.NotifyAdmin dropping alert", "length", len(message))
	return nil
}
