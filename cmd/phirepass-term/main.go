// Command phirepass-term opens an interactive shell on a phirepass node from
// the local terminal.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/dimitrmo/phirepass-widgets/internal/channel"
	"github.com/dimitrmo/phirepass-widgets/internal/config"
	"github.com/dimitrmo/phirepass-widgets/internal/session"
	"github.com/dimitrmo/phirepass-widgets/internal/terminal"
	"github.com/dimitrmo/phirepass-widgets/pkg/logger"
)

const shutdownTimeout = 5 * time.Second

var errNoNode = errors.New("no node id given (pass one as an argument or set PHIREPASS_NODE_ID)")

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, errorLine(err))
		os.Exit(1)
	}
}

type flagValues struct {
	host      string
	port      int
	insecure  bool
	heartbeat time.Duration
	encoding  string
	strict    bool
	logLevel  string
}

func newRootCmd() *cobra.Command {
	var f flagValues
	cmd := &cobra.Command{
		Use:           "phirepass-term [node-id]",
		Short:         "Open an interactive terminal on a phirepass node",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, f, args)
			if err != nil {
				return err
			}
			return run(cmd.Context(), cfg, os.Stdin, os.Stdout)
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.host, "host", "", "server host (PHIREPASS_SERVER_HOST)")
	fl.IntVar(&f.port, "port", 0, "server port (PHIREPASS_SERVER_PORT)")
	fl.BoolVar(&f.insecure, "insecure", false, "use ws:// instead of wss:// (PHIREPASS_ALLOW_INSECURE)")
	fl.DurationVar(&f.heartbeat, "heartbeat-interval", 0, "heartbeat period, 15s or less means 30s (PHIREPASS_HEARTBEAT_INTERVAL)")
	fl.StringVar(&f.encoding, "encoding", "", "wire encoding: msgpack or json (PHIREPASS_ENCODING)")
	fl.BoolVar(&f.strict, "strict-tunnel-ids", false, "drop tunnel frames for other tunnel ids (PHIREPASS_STRICT_TUNNEL_IDS)")
	fl.StringVar(&f.logLevel, "log-level", "", "log level written to ~/.phirepass/term.log (PHIREPASS_LOG_LEVEL)")
	return cmd
}

// loadConfig layers flags that were set explicitly over the environment.
func loadConfig(cmd *cobra.Command, f flagValues, args []string) (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, err
	}

	fl := cmd.Flags()
	if fl.Changed("host") {
		cfg.ServerHost = f.host
	}
	if fl.Changed("port") {
		cfg.ServerPort = f.port
	}
	if fl.Changed("insecure") {
		cfg.AllowInsecure = f.insecure
	}
	if fl.Changed("heartbeat-interval") {
		cfg.HeartbeatInterval = f.heartbeat
	}
	if fl.Changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if fl.Changed("strict-tunnel-ids") {
		cfg.StrictTunnelIDs = f.strict
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if len(args) == 1 {
		cfg.NodeID = args[0]
	}

	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	if _, err := logger.ParseLevel(cfg.LogLevel); err != nil {
		return config.Config{}, err
	}
	if cfg.NodeID == "" {
		return config.Config{}, errNoNode
	}
	return cfg, nil
}

func setupLogging(cfg config.Config) (func(), error) {
	level, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.HomeDir, 0o700); err != nil {
		return nil, fmt.Errorf("create %s: %w", cfg.HomeDir, err)
	}
	f, err := os.OpenFile(cfg.LogFile(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	logger.SetOutput(f)
	logger.SetLevel(level)
	return func() {
		logger.SetOutput(os.Stderr)
		_ = f.Close()
	}, nil
}

func run(ctx context.Context, cfg config.Config, in, out *os.File) error {
	closeLog, err := setupLogging(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	enc, err := cfg.WireEncoding()
	if err != nil {
		return err
	}

	tty := terminal.New(in, out)
	if !tty.IsTerminal() {
		return errors.New("stdin is not a terminal")
	}
	fmt.Fprint(out, banner(cfg))

	if err := tty.MakeRaw(); err != nil {
		return fmt.Errorf("enter raw mode: %w", err)
	}
	defer func() {
		if err := tty.Restore(); err != nil {
			logger.Warnf("restore terminal: %v", err)
		}
	}()

	ctrl := session.NewController(
		channel.Factory(cfg.WebSocketURL(), channel.WithEncoding(enc)),
		tty,
		session.WithHeartbeatInterval(cfg.HeartbeatInterval),
		session.WithStrictTunnelIDs(cfg.StrictTunnelIDs),
		session.WithHooks(session.LogHooks()),
	)
	ctrl.Start()

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	logger.WithFields(logger.Fields{
		"node":     cfg.NodeID,
		"url":      cfg.WebSocketURL(),
		"encoding": enc,
	}).Info("starting session")

	result := ctrl.SetIdentity(ctx, cfg.NodeID)
	if result == nil {
		go terminal.WatchResize(ctx, func() { ctrl.Resize() })

		// The reader stays blocked on stdin after a signal; the process exits
		// right after shutdown so it is not joined.
		inputDone := make(chan error, 1)
		go func() {
			inputDone <- tty.ReadTokens(ctx, func(tok string) error {
				return ctrl.HandleInput(ctx, tok)
			})
		}()

		select {
		case <-ctx.Done():
		case <-ctrl.Done():
		case err := <-inputDone:
			if err != nil && !errors.Is(err, terminal.ErrEscape) && !errors.Is(err, context.Canceled) {
				result = err
			}
		}
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ctrl.SetIdentity(shutdownCtx, ""); err != nil && !errors.Is(err, session.ErrStopped) {
		logger.Debugf("clear identity: %v", err)
	}
	if err := ctrl.Shutdown(shutdownCtx); err != nil && result == nil {
		result = err
	}
	tty.Reset()
	logger.Infof("session ended")
	return result
}
