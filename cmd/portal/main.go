package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/naveenspark/portal/internal/config"
	"github.com/naveenspark/portal/internal/metrics"
	"github.com/naveenspark/portal/internal/tui"
	"github.com/naveenspark/portal/pkg/client"
	"github.com/naveenspark/portal/pkg/credstore"
	"github.com/naveenspark/portal/pkg/session"
)

// version is set at build time via -ldflags "-X main.version=..."
var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	if len(args) > 0 {
		switch args[0] {
		case "--version", "version", "-v":
			printVersion(stdout)
			return nil
		case "help", "--help", "-h":
			printHelp(stdout)
			return nil
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	if len(args) == 0 {
		return runTUI(ctx, cfg)
	}

	log := newLogger(stderr, cfg.Level())
	switch args[0] {
	case "login":
		return runLogin(ctx, cfg, log, args[1:], stdout, stderr)
	case "register":
		return runRegister(ctx, cfg, log, args[1:], stdout, stderr)
	case "logout":
		return runLogout(ctx, cfg, log, stdout)
	case "whoami":
		return runWhoami(ctx, cfg, log, stdout)
	}
	printHelp(stderr)
	return fmt.Errorf("unknown command %q", args[0])
}

func runTUI(ctx context.Context, cfg *config.Config) error {
	logFile, err := openLogFile()
	if err != nil {
		return err
	}
	defer logFile.Close()

	st, err := newStack(cfg, newLogger(logFile, cfg.Level()))
	if err != nil {
		return err
	}
	defer st.Close()

	// Subscribe before restoring so the restore outcome reaches the UI.
	events, unsubscribe := st.mgr.Subscribe()
	defer unsubscribe()
	st.mgr.Restore(ctx, st.api)

	app := tui.NewApp(st.mgr, st.api, events)
	p := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("tui error: %w", err)
	}
	return nil
}

// stack is the wired client: store, session manager and request gateway.
type stack struct {
	cfg     *config.Config
	log     zerolog.Logger
	store   credstore.Store
	mgr     *session.Manager
	api     *client.Client
	reg     *prometheus.Registry
	closers []func() error
}

func newStack(cfg *config.Config, log zerolog.Logger) (*stack, error) {
	st := &stack{cfg: cfg, log: log, reg: prometheus.NewRegistry()}
	metrics.RegisterCollectors(st.reg)

	store, closer, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	st.store = store
	if closer != nil {
		st.closers = append(st.closers, closer)
	}

	opts := []client.Option{
		client.WithTimeout(cfg.RequestTimeout),
		client.WithRateLimit(cfg.RequestsPerSecond),
		client.WithLogger(log),
	}
	st.mgr = session.NewManager(store, client.NewAuth(cfg.APIBaseURL, opts...),
		session.WithLogger(log),
		session.WithRequestTimeout(cfg.RequestTimeout),
		session.WithRestoreTimeout(cfg.RestoreTimeout),
	)
	st.api = client.New(cfg.APIBaseURL, st.mgr, opts...)
	return st, nil
}

// Close stops the session manager, waiting for background calls such as a
// server-side logout, then releases the store.
func (s *stack) Close() {
	s.mgr.Close()
	s.logRequestStats()
	for _, c := range s.closers {
		if err := c(); err != nil {
			s.log.Warn().Err(err).Msg("close store")
		}
	}
}

func (s *stack) logRequestStats() {
	families, err := s.reg.Gather()
	if err != nil {
		s.log.Debug().Err(err).Msg("gather metrics")
		return
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			ev := s.log.Debug().Str("metric", mf.GetName())
			for _, lp := range m.GetLabel() {
				ev = ev.Str(lp.GetName(), lp.GetValue())
			}
			ev.Float64("value", m.GetCounter().GetValue()).Msg("request stats")
		}
	}
}

func openStore(cfg *config.Config) (credstore.Store, func() error, error) {
	switch cfg.Store {
	case config.StoreMemory:
		return credstore.NewMemoryStore(), nil, nil
	case config.StoreRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		return credstore.NewRedisStore(rdb, cfg.Redis.Prefix), rdb.Close, nil
	default:
		path := cfg.CredentialsPath
		if path == "" {
			p, err := credstore.DefaultPath()
			if err != nil {
				return nil, nil, err
			}
			path = p
		}
		return credstore.NewFileStore(path), nil, nil
	}
}

func newLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	return zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}).
		Level(level).
		With().Timestamp().
		Logger()
}

// openLogFile opens ~/.portal/portal.log for appending. The terminal belongs
// to the TUI while it runs.
func openLogFile() (*os.File, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home dir: %w", err)
	}
	dir := filepath.Join(home, ".portal")
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "portal.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}
