package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/engels74/tgraph-bot-go/internal/metrics"
)

// runSignals adapts an OS signal into a graceful shutdown, handing it to
// the running component instead of handling it inline.
type runSignals struct {
	cancel context.CancelFunc
}

func (r *runSignals) Signal(_ context.Context, _ os.Signal) {
	r.cancel()
}

func newRunCmd() *cobra.Command {
	var (
		debug       bool
		metricsAddr string
		guildID     string
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start the scheduler and the chat bot, and serve metrics.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), debug, metricsAddr, guildID)
		},
	}

	cmd.Flags().BoolVar(&debug, "debug", false, "enable verbose logging")
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", ":9090", "address to serve /metrics on")
	cmd.Flags().StringVar(&guildID, "guild", "", "guild to scope slash commands to (default: global)")

	return cmd
}

// runBot assembles the full object graph and blocks until ctx is cancelled
// by a signal or the metrics server fails: the metrics server runs in its
// own goroutine reporting onto an error channel, and the first error (or
// signal) tears everything down.
func runBot(parent context.Context, debug bool, metricsAddr, guildID string) error {
	startedAt := time.Now()

	su, err := newSetup(cfgFile, debug)
	if err != nil {
		return err
	}

	analyticsClient := su.analyticsClient()

	session, err := su.discordSession()
	if err != nil {
		return err
	}

	sup, err := su.supervisor()
	if err != nil {
		return err
	}

	chatOrchestrator := su.orchestrator(analyticsClient, su.chatClient(session))
	sched, err := su.scheduler(sup, chatOrchestrator)
	if err != nil {
		return err
	}

	registry := su.commandRegistry(sched, analyticsClient, chatOrchestrator)
	collector := su.metricsCollector(startedAt, sched, sup)
	metricsRegistry := metrics.NewRegistry(collector)

	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	listenSignals(ctx, &runSignals{cancel: cancel})

	errCh := make(chan error, 3)

	session.AddHandler(func(s *discordgo.Session, event *discordgo.InteractionCreate) {
		handleInteraction(ctx, registry, s, event)
	})

	if err := session.Open(); err != nil {
		return fmt.Errorf("open discord session: %w", err)
	}
	defer session.Close()

	if err := registerSlashCommands(session, guildID); err != nil {
		return err
	}

	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	defer sched.Stop()
	defer sup.Stop()

	server := &http.Server{Addr: metricsAddr, Handler: promhttp.HandlerFor(metricsRegistry, promhttp.HandlerOpts{})}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("metrics server: %w", err)
		}
	}()

	su.logger.Info("tgraphbot started", "metrics_addr", metricsAddr)

	select {
	case <-ctx.Done():
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = server.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		return err
	}
}
