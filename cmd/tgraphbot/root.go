package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "0.0.0"

// cfgFile is bound to the --config persistent flag shared by every
// subcommand.
var cfgFile string

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tgraphbot",
		Short: "Discord bot that posts media server playback statistics graphs.",
		Long:  "tgraphbot [--config=<config file>] <run|validate-config|version>",
	}

	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"config file (default is $HOME/.config/tgraphbot/config.yaml)")

	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newValidateConfigCmd())
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// signalListener receives OS signals so a running command can shut down
// cleanly.
type signalListener interface {
	Signal(ctx context.Context, sig os.Signal)
}

func listenSignals(ctx context.Context, listener signalListener) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ctx.Done():
			return
		case sig := <-sigs:
			listener.Signal(ctx, sig)
		}
	}()
}
