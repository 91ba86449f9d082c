// Package cli implements the idscan command line.
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/gmsas95/idscan/internal/app"
	"github.com/gmsas95/idscan/internal/config"
	"github.com/gmsas95/idscan/internal/extract"
)

var Version = "dev"

// globals are the flags every command accepts
type globals struct {
	configPath string
	dataDir    string
	json       bool
}

func (g *globals) register(fs *flag.FlagSet) {
	fs.StringVar(&g.configPath, "config", "", "Path to config file")
	fs.StringVar(&g.dataDir, "data", "", "Path to data directory")
	fs.BoolVar(&g.json, "json", false, "Print JSON instead of formatted output")
}

// pretty reports whether w is a terminal that should get styled output
func (g *globals) pretty(w io.Writer) bool {
	if g.json {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Run executes the command in args and returns the process exit code
func Run(args []string) int {
	if len(args) == 0 {
		PrintHelp(os.Stdout)
		return 2
	}

	cmd, rest := args[0], args[1:]
	var err error
	switch cmd {
	case "license", "dl", "ssn", "passport":
		kind, _ := extract.ParseKind(cmd)
		err = runScan(kind, rest, os.Stdout)
	case "mrz":
		err = runMRZ(rest, os.Stdin, os.Stdout)
	case "batch":
		err = runBatch(rest, os.Stdout)
	case "watch":
		err = runWatch(rest)
	case "serve", "server":
		err = runServe(rest)
	case "history":
		err = runHistory(rest, os.Stdout)
	case "version", "--version", "-v":
		fmt.Printf("idscan version %s\n", Version)
		return 0
	case "help", "--help", "-h":
		PrintHelp(os.Stdout)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		PrintHelp(os.Stderr)
		return 2
	}

	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// NewLogger builds a development logger, or a JSON production logger when
// configured
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.JSON {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", cfg.Level, err)
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}

// bootstrap loads config, lets the command adjust it, and wires the app.
// The returned func closes everything.
func bootstrap(g *globals, adjust func(*config.Config)) (*app.App, func(), error) {
	cfg, err := config.Load(g.configPath, g.dataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}

	logger, err := NewLogger(cfg.Log)
	if err != nil {
		return nil, nil, err
	}

	application, err := app.New(cfg, logger, Version)
	if err != nil {
		logger.Sync()
		return nil, nil, err
	}

	cleanup := func() {
		if err := application.Close(); err != nil {
			logger.Warn("Failed to close", zap.Error(err))
		}
		logger.Sync()
	}
	return application, cleanup, nil
}

func parseKind(s string) (extract.Kind, error) {
	kind, ok := extract.ParseKind(s)
	if !ok {
		return "", fmt.Errorf("unknown document kind %q (want license, ssn or passport)", s)
	}
	return kind, nil
}
