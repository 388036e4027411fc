// Package api exposes the HTTP surface of the restaurant assistant: webhook
// verification and delivery, the encrypted WhatsApp Flow data exchange, and
// session maintenance endpoints.
package api

import (
	"context"
	"crypto/rsa"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

// DefaultAddr is the listen address used when none is configured.
const DefaultAddr = ":8080"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr               string
	VerifyToken        string
	FlowPrivateKeyPEM  string
	FlowPrivateKeyPath string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr overrides the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// WithVerifyToken sets the webhook verification token.
func WithVerifyToken(token string) Option {
	return func(o *Opts) { o.VerifyToken = token }
}

// WithFlowPrivateKeyPEM sets the PEM-encoded RSA private key for the Flow
// data exchange.
func WithFlowPrivateKeyPEM(pemData string) Option {
	return func(o *Opts) { o.FlowPrivateKeyPEM = pemData }
}

// WithFlowPrivateKeyPath sets the path of a PEM file holding the RSA private
// key for the Flow data exchange.
func WithFlowPrivateKeyPath(path string) Option {
	return func(o *Opts) { o.FlowPrivateKeyPath = path }
}

// MessageProcessor handles a decoded inbound WhatsApp message end to end.
// Implemented by flow.Processor.
type MessageProcessor interface {
	ProcessMessage(ctx context.Context, in *whatsapp.Incoming)
}

// SessionCloser summarizes and persists a customer session on demand.
// Implemented by flow.Supervisor.
type SessionCloser interface {
	SummarizeSession(ctx context.Context, contactNumber string)
}

// Server wires the HTTP endpoints to the message-processing core.
type Server struct {
	addr        string
	verifyToken string
	privateKey  *rsa.PrivateKey

	processor MessageProcessor
	sessions  SessionCloser
	menu      *menu.Service
	store     store.Store

	httpSrv *http.Server
}

// NewServer creates the API server. Options fall back to the VERIFY_TOKEN,
// API_ADDR, FLOW_PRIVATE_KEY and FLOW_PRIVATE_KEY_PATH environment variables.
// The Flow private key is optional; without it the data-exchange endpoint is
// disabled.
func NewServer(processor MessageProcessor, sessions SessionCloser, menuSvc *menu.Service, st store.Store, opts ...Option) (*Server, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = os.Getenv("API_ADDR")
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	if cfg.VerifyToken == "" {
		cfg.VerifyToken = os.Getenv("VERIFY_TOKEN")
	}
	if cfg.FlowPrivateKeyPEM == "" {
		cfg.FlowPrivateKeyPEM = os.Getenv("FLOW_PRIVATE_KEY")
	}
	if cfg.FlowPrivateKeyPath == "" {
		cfg.FlowPrivateKeyPath = os.Getenv("FLOW_PRIVATE_KEY_PATH")
	}

	s := &Server{
		addr:        cfg.Addr,
		verifyToken: cfg.VerifyToken,
		processor:   processor,
		sessions:    sessions,
		menu:        menuSvc,
		store:       st,
	}

	pemData := cfg.FlowPrivateKeyPEM
	if pemData == "" && cfg.FlowPrivateKeyPath != "" {
		raw, err := os.ReadFile(cfg.FlowPrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read flow private key file: %w", err)
		}
		pemData = string(raw)
	}
	if pemData != "" {
		key, err := ParseFlowPrivateKey([]byte(pemData))
		if err != nil {
			return nil, err
		}
		s.privateKey = key
	} else {
		slog.Warn("Server.NewServer: no flow private key configured, flow data exchange disabled")
	}
	if s.verifyToken == "" {
		slog.Warn("Server.NewServer: no verify token configured, webhook verification will reject all requests")
	}
	return s, nil
}

// Handler builds the HTTP route table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/webhook", s.webhookHandler)
	mux.HandleFunc("/flow-data", s.flowDataHandler)
	mux.HandleFunc("/end-session", s.endSessionHandler)
	mux.HandleFunc("/clear-session", s.clearSessionHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Start runs the HTTP server. It blocks until the server stops.
func (s *Server) Start() error {
	s.httpSrv = &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	slog.Info("Server.Start: listening", "addr", s.addr)
	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("API server failed: %w", err)
	}
	return nil
}

// Shutdown stops the HTTP server gracefully.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	slog.Info("Server.Shutdown: stopping API server")
	return s.httpSrv.Shutdown(ctx)
}
