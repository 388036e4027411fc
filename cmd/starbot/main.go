package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Emelda-debug/Restaurant-P-O-C/internal/api"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/flow"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/genai"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/menu"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/notify"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/scheduler"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/session"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/store"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/util"
	"github.com/Emelda-debug/Restaurant-P-O-C/internal/whatsapp"
)

// DefaultShutdownTimeout bounds the graceful HTTP drain on exit.
const DefaultShutdownTimeout = 10 * time.Second

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	slog.Info("Bootstrapping Star Restaurant assistant")
	if err := run(flags); err != nil {
		slog.Error("Star Restaurant assistant failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("Star Restaurant assistant exited successfully")
}

// Config holds environment configuration.
type Config struct {
	DatabaseURL         string
	SQLitePath          string
	OpenAIKey           string
	APIAddr             string
	MenuCron            string
	SessionStripes      int
	InactivityThreshold time.Duration
}

// Flags holds command line flag values.
type Flags struct {
	databaseURL         *string
	sqlitePath          *string
	openaiKey           *string
	apiAddr             *string
	menuCron            *string
	sessionStripes      *int
	inactivityThreshold *time.Duration
}

// initializeLogger sets up structured logging with debug level.
func initializeLogger() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	slog.SetDefault(logger)
}

// loadEnvironmentConfig loads configuration from environment variables and
// the .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		SQLitePath:          store.DSNFromEnv(),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		APIAddr:             os.Getenv("API_ADDR"),
		MenuCron:            os.Getenv("MENU_BROADCAST_CRON"),
		SessionStripes:      util.ParseIntEnv("SESSION_STRIPES", session.DefaultStripes),
		InactivityThreshold: util.ParseDurationEnv("INACTIVITY_THRESHOLD", flow.DefaultInactivityThreshold),
	}

	slog.Debug("environment variables loaded",
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"SQLITE_DB_PATH", config.SQLitePath,
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"API_ADDR", config.APIAddr,
		"MENU_BROADCAST_CRON", config.MenuCron,
		"SESSION_STRIPES", config.SessionStripes,
		"INACTIVITY_THRESHOLD", config.InactivityThreshold)

	return config
}

// parseCommandLineFlags parses command line arguments with environment
// defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		databaseURL:         flag.String("db-url", config.DatabaseURL, "Postgres connection URL (overrides $DATABASE_URL)"),
		sqlitePath:          flag.String("sqlite-path", config.SQLitePath, "SQLite database path used when no Postgres URL is set (overrides $SQLITE_DB_PATH)"),
		openaiKey:           flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		apiAddr:             flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		menuCron:            flag.String("menu-cron", config.MenuCron, "cron expression for the daily menu broadcast (overrides $MENU_BROADCAST_CRON)"),
		sessionStripes:      flag.Int("session-stripes", config.SessionStripes, "number of per-customer lock stripes (overrides $SESSION_STRIPES)"),
		inactivityThreshold: flag.Duration("inactivity-threshold", config.InactivityThreshold, "idle time before a session is summarized (overrides $INACTIVITY_THRESHOLD)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"dbURL_set", *flags.databaseURL != "",
		"sqlitePath", *flags.sqlitePath,
		"openaiKeySet", *flags.openaiKey != "",
		"apiAddr", *flags.apiAddr,
		"menuCron", *flags.menuCron,
		"sessionStripes", *flags.sessionStripes,
		"inactivityThreshold", *flags.inactivityThreshold)

	return flags
}

// buildStore opens Postgres when a URL is configured, SQLite otherwise.
func buildStore(flags Flags) (store.Store, error) {
	if *flags.databaseURL != "" {
		slog.Info("Using Postgres store")
		return store.NewPostgresStore(store.WithDSN(*flags.databaseURL))
	}
	slog.Info("Using SQLite store", "path", *flags.sqlitePath)
	var opts []store.Option
	if *flags.sqlitePath != "" {
		opts = append(opts, store.WithDSN(*flags.sqlitePath))
	}
	return store.NewSQLiteStore(opts...)
}

func buildGenAIOptions(flags Flags) []genai.Option {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	return opts
}

func buildAPIOptions(flags Flags) []api.Option {
	var opts []api.Option
	if *flags.apiAddr != "" {
		opts = append(opts, api.WithAddr(*flags.apiAddr))
	}
	return opts
}

func run(flags Flags) error {
	st, err := buildStore(flags)
	if err != nil {
		return err
	}
	defer st.Close()

	ai, err := genai.NewClient(buildGenAIOptions(flags)...)
	if err != nil {
		return err
	}

	sender, err := whatsapp.NewClient()
	if err != nil {
		return err
	}

	var notifier notify.Notifier
	if twilioNotifier, err := notify.NewTwilioNotifier(); err != nil {
		slog.Warn("Twilio notifier unavailable, admin alerts disabled", "error", err)
		notifier = notify.NoopNotifier{}
	} else {
		notifier = twilioNotifier
	}

	menuSvc := menu.NewService(st, sender)
	sessions := session.NewManager(*flags.sessionStripes)
	engine := flow.NewEngine(st, notifier)
	router := flow.NewRouter(st, notifier)
	supervisor := flow.NewSupervisor(st, ai, *flags.inactivityThreshold)
	responder := flow.NewResponder(ai, st, sender, menuSvc, notifier)
	processor := flow.NewProcessor(st, sessions, engine, router, supervisor, responder, menuSvc, sender, notifier)

	srv, err := api.NewServer(processor, supervisor, menuSvc, st, buildAPIOptions(flags)...)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler()
	defer sched.Stop()
	if err := sched.ScheduleDailyMenu(menuSvc, *flags.menuCron); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		slog.Info("Shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
