package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/omochice/turn-chat/internal/client"
	"github.com/omochice/turn-chat/internal/config"
	"github.com/omochice/turn-chat/internal/logging"
)

var (
	errMissingArgs = errors.New("missing arguments, required: hostname port")
	errTooManyArgs = errors.New("too many arguments, expected: hostname port")
)

type options struct {
	configPath string
	handle     string
	transport  string
	wsPath     string
	logLevel   string
}

func newRootCommand() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:   "chatclient [<host> <port>]",
		Short: "Chat with a peer, taking turns, until either side sends \\quit",
		Long:  "Chat with a peer, taking turns, until either side sends \\quit.\n\nhost and port may be left out when the config file sets both.",
		Args: func(cmd *cobra.Command, args []string) error {
			switch {
			case len(args) > 2:
				return fmt.Errorf("%w, got %d", errTooManyArgs, len(args))
			case len(args) == 1:
				return errMissingArgs
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			if len(args) == 2 {
				cfg.Client.Host = args[0]
				cfg.Client.Port = args[1]
			}
			if cfg.Client.Host == "" || cfg.Client.Port == "" {
				return errMissingArgs
			}

			logger, err := logging.New("chatclient", cfg.Log.Level, os.Stderr)
			if err != nil {
				return err
			}

			c := client.New(cfg.Client,
				client.WithInput(cmd.InOrStdin()),
				client.WithOutput(cmd.OutOrStdout()),
				client.WithLogger(logger),
			)
			return c.Run(cmd.Context())
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.configPath, "config", "", "path to a TOML config file")
	flags.StringVar(&opts.handle, "handle", "", "handle to chat as (prompted when empty)")
	flags.StringVar(&opts.transport, "transport", config.TransportTCP, "transport to use: tcp or ws")
	flags.StringVar(&opts.wsPath, "ws-path", "", "request path for the ws transport")
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
		cfg.Client.Handle = opts.handle
	}
	if flags.Changed("transport") {
		cfg.Client.Transport = opts.transport
	}
	if flags.Changed("ws-path") {
		cfg.Client.WSPath = opts.wsPath
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
