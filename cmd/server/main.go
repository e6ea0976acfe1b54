package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/woxQAQ/prisma-schema-lsp/internal/config"
	"github.com/woxQAQ/prisma-schema-lsp/internal/lsp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// app is the state shared by every command once flags are parsed.
type app struct {
	configPath string
	loader     *config.Loader
	cfg        *config.ServerConfig
	level      zap.AtomicLevel
	logger     *zap.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:          "prisma-schema-lsp",
		Short:        "Language server for Prisma schema files",
		Version:      fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "Path to configuration file")
	flags.String("log-level", "info", "Log level (debug, info, warn, error)")
	flags.StringSlice("engine-path", nil, "Directories searched for engine bundles")
	flags.String("engine", "", "Engine bundle to use (default: first discovered)")
	flags.Bool("force-panic", false, "Make every engine call fault")

	root.AddCommand(newServeCommand(a), newCheckCommand(a), newFormatCommand(a))
	return root
}

// setup loads the configuration and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	loader, err := config.NewLoader(a.configPath, cmd.Flags())
	if err != nil {
		return fmt.Errorf("failed to read configuration: %w", err)
	}
	cfg, err := loader.Load()
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	level, err := cfg.Level()
	if err != nil {
		return err
	}
	logger, err := newLogger(level)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	a.loader, a.cfg, a.level, a.logger = loader, cfg, level, logger
	lsp.Version = version
	return nil
}

// newLogger logs to stderr so the stdio transport stays clean.
func newLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if level.Level() == zapcore.DebugLevel {
		cfg = zap.NewDevelopmentConfig()
	}
	cfg.Level = level
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

// watchConfig applies log level changes of the configuration file.
func (a *app) watchConfig() {
	a.loader.Watch(func(cfg *config.ServerConfig, err error) {
		if err != nil {
			a.logger.Warn("Ignoring invalid configuration change", zap.Error(err))
			return
		}
		level, err := cfg.Level()
		if err != nil {
			return
		}
		a.level.SetLevel(level.Level())
		a.logger.Info("Configuration reloaded", zap.String("log_level", level.String()))
	})
}
