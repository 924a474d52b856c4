package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/five82/jibewatch/internal/config"
	"github.com/five82/jibewatch/internal/follow"
	"github.com/five82/jibewatch/internal/jibe"
	"github.com/five82/jibewatch/internal/prefs"
	"github.com/five82/jibewatch/internal/server"
	"github.com/five82/jibewatch/internal/state"
	"github.com/five82/jibewatch/internal/ui"
)

// LatestRun selects the newest run reported by the backend.
const LatestRun = "latest"

// ErrNoRuns is returned when the latest run is requested and the backend
// has none.
var ErrNoRuns = errors.New("backend reports no runs")

// Options configure the jibewatch application.
type Options struct {
	ConfigPath string
	PrefsPath  string // empty uses default ~/.config/jibewatch/prefs.toml
	RunID      string // empty or "latest" follows the newest run
	ListenAddr string // serve only; empty uses the config value
}

// session holds everything one followed run needs.
type session struct {
	cfg      config.Config
	logger   zerolog.Logger
	closeLog func() error
	client   *jibe.Client
	store    *state.Store
	follower *follow.Follower
}

func open(ctx context.Context, opts Options, console bool) (*session, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, closeLog, err := NewLogger(cfg, console)
	if err != nil {
		return nil, err
	}

	client, err := jibe.NewClient(cfg.APIBase, jibe.Options{
		UserAgent:         cfg.UserAgent,
		RequestsPerSecond: cfg.RequestsPerSecond,
	})
	if err != nil {
		_ = closeLog()
		return nil, fmt.Errorf("init jibe client: %w", err)
	}

	runID, err := ResolveRun(ctx, client, opts.RunID)
	if err != nil {
		_ = closeLog()
		return nil, err
	}
	logger.Info().Str("run", runID).Str("api", cfg.APIBase).Msg("following run")

	return &session{
		cfg:      cfg,
		logger:   logger,
		closeLog: closeLog,
		client:   client,
		store:    &state.Store{},
		follower: follow.New(runID, client, logger),
	}, nil
}

// start launches the tree poller and the log follower. It populates the
// store once before returning so the first frame has data.
func (s *session) start(ctx context.Context) {
	_ = refresh(ctx, s.store, s.client, s.follower, s.logger)
	StartPoller(ctx, s.store, s.client, s.follower, s.cfg.RunPollInterval, s.logger)
	go s.follower.Run(ctx, s.cfg.PollInterval)
}

func (s *session) close() {
	if err := s.closeLog(); err != nil {
		s.logger.Warn().Err(err).Msg("close log file")
	}
}

// Run boots the jibewatch TUI until the user quits or the context is
// cancelled.
func Run(ctx context.Context, opts Options) error {
	s, err := open(ctx, opts, false)
	if err != nil {
		return err
	}
	defer s.close()

	userPrefs, err := prefs.Load(opts.PrefsPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("load prefs, using defaults")
	}

	s.start(ctx)

	return ui.Run(ui.Options{
		Context:   ctx,
		Store:     s.store,
		Logs:      s.follower,
		Prefs:     userPrefs,
		PrefsPath: opts.PrefsPath,
		PollTick:  s.cfg.PollInterval,
		Logger:    s.logger,
	})
}

// Serve follows a run headless and publishes its decoded blocks over
// HTTP and WebSocket until the context is cancelled.
func Serve(ctx context.Context, opts Options) error {
	s, err := open(ctx, opts, true)
	if err != nil {
		return err
	}
	defer s.close()

	addr := strings.TrimSpace(opts.ListenAddr)
	if addr == "" {
		addr = s.cfg.ListenAddr
	}

	s.start(ctx)

	srv := server.New(server.Options{
		Addr:         addr,
		Logs:         s.follower,
		Logger:       s.logger,
		PushInterval: s.cfg.PollInterval,
	})
	return srv.Start(ctx)
}

// ResolveRun maps a run reference to a run id. An empty reference and
// "latest" select the newest run.
func ResolveRun(ctx context.Context, f jibe.Fetcher, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref != "" && !strings.EqualFold(ref, LatestRun) {
		return ref, nil
	}
	runs, err := f.FetchRuns(ctx, 1, 0)
	if err != nil {
		return "", fmt.Errorf("find latest run: %w", err)
	}
	if len(runs) == 0 || runs[0].Key() == "" {
		return "", ErrNoRuns
	}
	return runs[0].Key(), nil
}
