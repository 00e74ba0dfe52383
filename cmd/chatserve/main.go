package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/omochice/turn-chat/internal/config"
	"github.com/omochice/turn-chat/internal/logging"
	"github.com/omochice/turn-chat/internal/server"
	"github.com/omochice/turn-chat/pkg/protocol"
)

var errMissingPort = errors.New("missing arguments, required: port")

type options struct {
	configPath string
	handle     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:           "chatserve [port]",
		Short:         "Answer chat clients one at a time; clients speak first",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				cfg.Server.Addr = net.JoinHostPort("", args[0])
			}
			if cfg.Server.Addr == "" {
				return errMissingPort
			}

			handle, err := protocol.NewHandle(cfg.Server.Handle)
			if err != nil {
				return err
			}
			logger, err := logging.New("chatserve", cfg.Log.Level, os.Stderr)
			if err != nil {
				return err
			}

			srv := server.New(cfg.Server.Addr, handle,
				server.WithInput(cmd.InOrStdin()),
				server.WithOutput(cmd.OutOrStdout()),
				server.WithLogger(logger),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			group, ctx := errgroup.WithContext(ctx)
			group.Go(srv.Start)
			group.Go(func() error {
				<-ctx.Done()
				// A second signal kills the process if a session is stuck on operator input.
				stop()
				logger.Info().Msg("shutting down")
				srv.Stop()
				return nil
			})
			return group.Wait()
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&opts.handle, "handle", config.DefaultServerHandle, "handle to answer as")
	flags.StringVar(&opts.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	return cmd
}

// loadConfig reads the config file, if any, and applies flags set on the command line.
func loadConfig(cmd *cobra.Command, opts options) (config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	if flags.Changed("handle") {
		cfg.Server.Handle = opts.handle
	}
	if flags.Changed("log-level") {
		cfg.Log.Level = opts.logLevel
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func main() {
	if err := newRootCommand().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
