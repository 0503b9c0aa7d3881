package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/engels74/tgraph-bot-go/internal/analytics"
	"github.com/engels74/tgraph-bot-go/internal/chat"
	"github.com/engels74/tgraph-bot-go/internal/clock"
	"github.com/engels74/tgraph-bot-go/internal/commands"
	"github.com/engels74/tgraph-bot-go/internal/config"
	"github.com/engels74/tgraph-bot-go/internal/graphs"
	"github.com/engels74/tgraph-bot-go/internal/log"
	"github.com/engels74/tgraph-bot-go/internal/metrics"
	"github.com/engels74/tgraph-bot-go/internal/orchestrate"
	"github.com/engels74/tgraph-bot-go/internal/recovery"
	"github.com/engels74/tgraph-bot-go/internal/schedule"
	"github.com/engels74/tgraph-bot-go/internal/scheduler"
	"github.com/engels74/tgraph-bot-go/internal/state"
	"github.com/engels74/tgraph-bot-go/internal/supervisor"
)

// setup builds every dependency from a loaded configuration, one builder
// method per component, each reading the config store's current snapshot.
type setup struct {
	store   *config.Store
	cfg     *config.Config
	logger  log.Logger
	clk     clock.Clock
	dataDir string
}

// defaultConfigPath resolves $HOME/.config/tgraphbot/config.yaml, the usual
// $HOME/.config/<app>/... convention.
func defaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, ".config", "tgraphbot", "config.yaml"), nil
}

// newSetup loads and validates the configuration document at path (or the
// default location if empty), and prepares the data directory that holds
// schedule state and rendered graph artifacts alongside it.
func newSetup(path string, debug bool) (*setup, error) {
	if path == "" {
		resolved, err := defaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = resolved
	}

	logOpts := []log.Option{log.WithFormat("console")}
	if debug {
		logOpts = append(logOpts, log.WithDebug())
	}
	logger := log.New(logOpts...)

	store := config.New(path, logger)
	cfg, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	dataDir := filepath.Join(filepath.Dir(path), "data")
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}

	return &setup{store: store, cfg: cfg, logger: logger, clk: clock.New(time.Local), dataDir: dataDir}, nil
}

func (s *setup) artifactDir() string { return filepath.Join(s.dataDir, "artifacts") }
func (s *setup) statePath() string   { return filepath.Join(s.dataDir, "schedule_state.json") }

func (s *setup) analyticsClient() *analytics.Client {
	cfg := s.store.Current().Analytics
	return analytics.NewClient(cfg.BaseURL, cfg.APIKey)
}

// discordSession creates a discordgo session carrying the bot token; it does
// not open it. The caller is responsible for opening and closing it.
func (s *setup) discordSession() (*discordgo.Session, error) {
	token := s.store.Current().Chat.Token
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds
	return session, nil
}

func (s *setup) chatClient(session *discordgo.Session) *chat.Client {
	botUserID := ""
	if session.State != nil && session.State.User != nil {
		botUserID = session.State.User.ID
	}
	return chat.NewClient(session, botUserID)
}

func (s *setup) orchestrator(fetcher analytics.Fetcher, poster chat.Poster) *orchestrate.Orchestrator {
	return orchestrate.New(fetcher, poster, s.logger, func() time.Time { return s.clk.Now() })
}

func (s *setup) supervisor() (*supervisor.Supervisor, error) {
	policy, err := s.store.Current().Policy()
	if err != nil {
		return nil, fmt.Errorf("build retry policy: %w", err)
	}
	return supervisor.New(s.clk, s.logger, policy), nil
}

func (s *setup) scheduler(sup *supervisor.Supervisor, orch *orchestrate.Orchestrator) (*scheduler.Scheduler, error) {
	policy, err := s.store.Current().Policy()
	if err != nil {
		return nil, fmt.Errorf("build retry policy: %w", err)
	}

	calc := schedule.NewCalculator(s.clk)
	rec := recovery.New(s.clk, calc, s.logger)
	stateStore := state.NewStore(s.statePath(), s.clk, s.logger)

	artifactDir := s.artifactDir()
	if err := os.MkdirAll(artifactDir, 0o755); err != nil {
		return nil, fmt.Errorf("create artifact directory: %w", err)
	}

	snapshot := func() (scheduler.RunConfig, error) {
		cfg := s.store.Current()
		schedulingCfg, err := cfg.SchedulingConfig()
		if err != nil {
			return scheduler.RunConfig{}, err
		}
		return scheduler.RunConfig{
			Scheduling: schedulingCfg,
			Run: orchestrate.Config{
				TimeRange:   cfg.TimeRange(),
				Enabled:     cfg.GraphsEnabled(),
				Colours:     cfg.ColorConfig(),
				Dimensions:  graphs.DefaultDimensions(),
				ArtifactDir: artifactDir,
				KeepDays:    cfg.Schedule.KeepDays,
			},
			Target: orchestrate.Target{ChannelID: cfg.Chat.ChannelID, PostDeleteLookback: 50},
		}, nil
	}

	return scheduler.New(s.clk, calc, rec, stateStore, sup, orch, policy, s.logger, snapshot, true), nil
}

func (s *setup) commandRegistry(sched *scheduler.Scheduler, fetcher analytics.Fetcher, dmOrchestrator *orchestrate.Orchestrator) *commands.Registry {
	reg := commands.NewRegistry()
	configCooldowns := commands.NewCooldownTracker(s.clk)

	reg.Register(commands.NewAboutCommand(0, ""))
	reg.Register(commands.NewUptimeCommand(s.clk))
	reg.Register(commands.NewConfigViewCommand(s.store, configCooldowns))
	reg.Register(commands.NewConfigEditCommand(s.store, configCooldowns))
	reg.Register(commands.NewMyStatsCommand(s.store, fetcher, dmOrchestrator, commands.NewCooldownTracker(s.clk), s.artifactDir()))
	reg.Register(commands.NewUpdateGraphsCommand(sched, s.store, commands.NewCooldownTracker(s.clk)))

	return reg
}

func (s *setup) metricsCollector(startedAt time.Time, sched *scheduler.Scheduler, sup *supervisor.Supervisor) *metrics.Collector {
	return metrics.NewCollector(version, startedAt, s.clk, sched, sup)
}
