// qserver is a line-oriented quantum register server. Clients connect over
// TCP, select the simulation method and then drive a per-session register
// machine with commands such as "Q 0", "H 0" and "R 0".
//
// Run "qserver console" for an interactive terminal client.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(os.Args[1:], os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stderr io.Writer) error {
	if len(args) > 0 && args[0] == "console" {
		return runConsole(args[1:], stderr)
	}

	cfg, err := parseServerFlags(args, stderr)
	if err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	logger, err := newLogger(cfg.Verbose)
	if err != nil {
		return errors.Wrap(err, "create logger")
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.Address())
	if err != nil {
		return errors.Wrapf(err, "listen on %s", cfg.Address())
	}

	server := NewServer(cfg, logger)
	if cfg.MetricsListen != "" {
		server.ServeMetrics(cfg.MetricsListen)
	}
	server.Serve(listener)

	done := make(chan error, 1)
	go func() { done <- server.Wait() }()

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
		return server.Close()
	case err := <-done:
		return err
	}
}

// parseServerFlags builds the server configuration: defaults, then the
// config file, then the flags that were set explicitly.
func parseServerFlags(args []string, stderr io.Writer) (Config, error) {
	defaults := DefaultConfig()

	var (
		configPath string
		eager      bool
		lazy       bool
		flagCfg    = defaults
	)

	flagSet := pflag.NewFlagSet("qserver", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVar(&configPath, "config", "", "path to a YAML config file (default $"+configEnvVar+")")
	flagSet.StringVar(&flagCfg.Host, "host", defaults.Host, "address to listen on")
	flagSet.IntVarP(&flagCfg.Port, "port", "p", defaults.Port, "TCP port to listen on")
	flagSet.IntVarP(&flagCfg.MaxConnections, "max-connections", "n", defaults.MaxConnections, "maximum number of concurrent sessions")
	flagSet.StringVar(&flagCfg.LimitPolicy, "limit-policy", defaults.LimitPolicy, "what to do with clients over the limit: block or reject")
	flagSet.BoolVarP(&flagCfg.Verbose, "verbose", "v", defaults.Verbose, "log every command at debug level")
	flagSet.BoolVarP(&lazy, "queueing", "q", false, "queue commands until a flush point (default)")
	flagSet.BoolVarP(&eager, "eager", "e", false, "execute every command immediately")
	flagSet.StringVarP(&flagCfg.Backend, "backend", "s", defaults.Backend, "execution backend: "+strings.Join(BackendNames(), ", "))
	flagSet.BoolVar(&flagCfg.Debug, "debug", defaults.Debug, "end sessions on internal errors")
	flagSet.Uint64Var(&flagCfg.Seed, "seed", defaults.Seed, "seed for measurement sampling, 0 for random")
	flagSet.IntVar(&flagCfg.MaxQubits, "max-qubits", defaults.MaxQubits, "maximum number of qubits per session")
	flagSet.IntVar(&flagCfg.DumpLimit, "dump-limit", defaults.DumpLimit, "maximum number of amplitudes printed by dump")
	flagSet.StringVar(&flagCfg.MetricsListen, "metrics", defaults.MetricsListen, "address to serve Prometheus metrics on")
	flagSet.Usage = func() {
		fmt.Fprintf(stderr, "Usage: qserver [flags]\n       qserver console [flags]\n\nFlags:\n%s", flagSet.FlagUsages())
	}

	if err := flagSet.Parse(args); err != nil {
		return Config{}, err
	}
	if flagSet.NArg() > 0 {
		return Config{}, errors.Errorf("unexpected argument: %s", flagSet.Arg(0))
	}
	if eager && lazy {
		return Config{}, errors.New("--eager and --queueing are mutually exclusive")
	}

	if configPath == "" {
		configPath = os.Getenv(configEnvVar)
	}
	cfg := defaults
	if configPath != "" {
		loaded, err := LoadConfig(configPath)
		if err != nil {
			return Config{}, err
		}
		cfg = loaded
	}

	// explicitly set flags win over the file
	flagSet.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "host":
			cfg.Host = flagCfg.Host
		case "port":
			cfg.Port = flagCfg.Port
		case "max-connections":
			cfg.MaxConnections = flagCfg.MaxConnections
		case "limit-policy":
			cfg.LimitPolicy = flagCfg.LimitPolicy
		case "verbose":
			cfg.Verbose = flagCfg.Verbose
		case "queueing":
			if lazy {
				cfg.Flush = FlushLazy
			}
		case "eager":
			if eager {
				cfg.Flush = FlushEager
			}
		case "backend":
			cfg.Backend = flagCfg.Backend
		case "debug":
			cfg.Debug = flagCfg.Debug
		case "seed":
			cfg.Seed = flagCfg.Seed
		case "max-qubits":
			cfg.MaxQubits = flagCfg.MaxQubits
		case "dump-limit":
			cfg.DumpLimit = flagCfg.DumpLimit
		case "metrics":
			cfg.MetricsListen = flagCfg.MetricsListen
		}
	})

	if err := cfg.Validate(); err != nil {
		return Config{}, errors.Wrap(err, "invalid configuration")
	}
	return cfg, nil
}

// newLogger returns a production logger, or a development logger at debug
// level when verbose is set.
func newLogger(verbose bool) (*zap.Logger, error) {
	if verbose {
		config := zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		return config.Build()
	}
	config := zap.NewProductionConfig()
	config.Sampling = nil
	return config.Build()
}

func runConsole(args []string, stderr io.Writer) error {
	var addr, mode string

	flagSet := pflag.NewFlagSet("qserver console", pflag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.StringVarP(&addr, "addr", "a", DefaultConfig().Address(), "server address")
	flagSet.StringVarP(&mode, "mode", "m", simulationMode, "simulation method sent on connect, empty to type it")
	if err := flagSet.Parse(args); err != nil {
		if err == pflag.ErrHelp {
			return nil
		}
		return err
	}

	console, conn, err := DialConsole(addr, mode)
	if err != nil {
		return err
	}
	defer conn.Close()

	program := tea.NewProgram(console, tea.WithAltScreen())
	_, err = program.Run()
	return err
}
