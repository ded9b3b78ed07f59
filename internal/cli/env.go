package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/xcmreserve/internal/config"
	"github.com/roach88/xcmreserve/internal/logging"
	"github.com/roach88/xcmreserve/internal/migration"
)

// env is the per-invocation state shared by commands: loaded config, the
// logger it selects, and the output formatter.
type env struct {
	cfg       *config.Config
	logger    *zap.Logger
	formatter *OutputFormatter
}

func newFormatter(opts *RootOptions, cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(), // Verbose logs go to stderr to avoid corrupting JSON
		Verbose:   opts.Verbose,
	}
}

// newEnv loads configuration and builds the logger. Failures are reported
// through the formatter and returned as command errors.
func newEnv(opts *RootOptions, cmd *cobra.Command) (*env, error) {
	formatter := newFormatter(opts, cmd)

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	level := cfg.LogLevel
	if opts.Verbose {
		level = "debug"
	}
	logger, err := logging.New(level, cfg.LogDevelopment)
	if err != nil {
		return nil, formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}

	formatter.VerboseLog("Deployment %s, store %s in %q", cfg.Deployment, cfg.StoreType, cfg.DataDir)
	return &env{cfg: cfg, logger: logger, formatter: formatter}, nil
}

func (e *env) close() {
	_ = e.logger.Sync()
}

func (e *env) openStore() (config.Backend, error) {
	backend, err := e.cfg.OpenStore(e.logger)
	if err != nil {
		return nil, e.formatter.Fail(ExitCommandError, ErrCodeStore, err)
	}
	return backend, nil
}

// openMigration wires the migration over backend. Metrics are collected when
// a textfile is configured; the returned Metrics is nil otherwise.
func (e *env) openMigration(backend config.Backend) (*migration.Migration, *migration.Metrics, error) {
	var metrics *migration.Metrics
	var opts []migration.Option
	if e.cfg.MetricsFile != "" {
		metrics = migration.NewMetrics()
		opts = append(opts, migration.WithMetrics(metrics))
	}

	m, err := e.cfg.Migration(backend, e.logger, opts...)
	if err != nil {
		return nil, nil, e.formatter.Fail(ExitCommandError, ErrCodeConfig, err)
	}
	return m, metrics, nil
}

// writeMetrics flushes metrics to the configured textfile. A write failure
// is logged, never fatal.
func (e *env) writeMetrics(metrics *migration.Metrics) {
	if metrics == nil {
		return
	}
	if err := metrics.WriteTextfile(e.cfg.MetricsFile); err != nil {
		e.logger.Warn("Failed to write metrics textfile",
			zap.String("path", e.cfg.MetricsFile),
			zap.Error(err))
	}
}
