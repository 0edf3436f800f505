package loader

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/oshokin/stage-loader/internal/config"
	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/fetcher"
	"github.com/oshokin/stage-loader/internal/gate"
	"github.com/oshokin/stage-loader/internal/logger"
	"github.com/oshokin/stage-loader/internal/progress"
	"github.com/oshokin/stage-loader/internal/service/process"
	"github.com/oshokin/stage-loader/internal/transport"
	"github.com/oshokin/stage-loader/internal/version"
)

// Options are inputs accepted by the loader entry point. Non-zero override
// fields replace values from the configuration file.
type Options struct {
	// ConfigPath is the optional path to the settings YAML file.
	ConfigPath string
	// ConfigExplicit makes a missing ConfigPath an error.
	ConfigExplicit bool
	// Overrides are applied on top of the file contents.
	Overrides Overrides
	// Stdout receives the progress indicator, os.Stdout when nil.
	Stdout io.Writer
	// Dialer opens connections, a net based dialer when nil.
	Dialer transport.Dialer
}

// Overrides mirror the command-line flags.
type Overrides struct {
	// Host is the positional host argument.
	Host string
	// Port is set by --port.
	Port int
	// Path is set by --path.
	Path string
	// ExpectedDigest is set by --digest or baked in at build time.
	ExpectedDigest string
	// Algorithm is set by --algorithm.
	Algorithm string
	// Output is set by --output.
	Output string
	// Promotion is set by --promotion.
	Promotion string
	// Quiet is set by --quiet.
	Quiet bool
	// ExecAfter is set by --exec.
	ExecAfter bool
	// ExecArgs are collected from repeated --exec-arg flags.
	ExecArgs []string
	// LogLevel is set by --log-level.
	LogLevel string
}

// Run executes a fetch-verify-promote cycle and is the public entry point for the CLI.
// Cycle failures are returned as *cycle.Error; use cycle.ExitCode for the exit status.
func Run(ctx context.Context, opts *Options) error {
	cfg, err := loadConfig(opts)
	if err != nil {
		return err
	}

	if err = logger.Setup(cfg.LogLevel, logger.FileOptions{Path: cfg.LogFile}); err != nil {
		return fmt.Errorf("configure logger: %w", err)
	}

	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "stage-loader")

	logger.DebugKV(ctx, "Loader build", "version", version.Short(), "platform", version.Platform())

	r, err := newRunner(cfg, opts)
	if err != nil {
		return err
	}

	if err = r.Run(ctx); err != nil {
		logger.ErrorKV(ctx, "Stage load failed",
			"kind", cycle.KindOf(err).String(), "state", r.machine.State().String(), "error", err)

		return err
	}

	return nil
}

// loadConfig merges the file with overrides and validates the result.
func loadConfig(opts *Options) (*config.Config, error) {
	configPath := opts.ConfigPath
	if configPath == "" {
		configPath = config.DefaultConfigFilename
	}

	cfg, err := config.LoadOrEmpty(configPath, opts.ConfigExplicit)
	if err != nil {
		return nil, err
	}

	opts.Overrides.apply(cfg)

	if err = config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid settings: %w", err)
	}

	return cfg, nil
}

// apply copies non-zero overrides into cfg.
func (o *Overrides) apply(cfg *config.Config) {
	setString(&cfg.Host, o.Host)
	setString(&cfg.Path, o.Path)
	setString(&cfg.ExpectedDigest, o.ExpectedDigest)
	setString(&cfg.Algorithm, o.Algorithm)
	setString(&cfg.Output, o.Output)
	setString(&cfg.Promotion, o.Promotion)
	setString(&cfg.LogLevel, o.LogLevel)

	if o.Port != 0 {
		cfg.Port = o.Port
	}

	if o.Quiet {
		cfg.Quiet = true
	}

	if o.ExecAfter {
		cfg.ExecAfter = true
	}

	if len(o.ExecArgs) > 0 {
		cfg.ExecArgs = append([]string(nil), o.ExecArgs...)
	}
}

// setString overwrites dst with a non-empty value.
func setString(dst *string, value string) {
	if value != "" {
		*dst = value
	}
}

// runner holds the collaborators of a single cycle.
type runner struct {
	cfg      *config.Config
	fetcher  *fetcher.Fetcher
	reporter *progress.Reporter
	machine  *cycle.Machine
}

// newRunner wires the fetcher, progress reporter and state machine.
func newRunner(cfg *config.Config, opts *Options) (*runner, error) {
	dialer := opts.Dialer
	if dialer == nil {
		dialer = transport.NewNetDialer(transport.WithConnectTimeout(cfg.ConnectTimeout))
	}

	var out io.Writer
	if !cfg.Quiet {
		out = opts.Stdout
		if out == nil {
			out = os.Stdout
		}
	}

	return &runner{
		cfg:      cfg,
		fetcher:  fetcher.New(dialer),
		reporter: progress.NewReporter(out),
	}, nil
}

// Run downloads, verifies, promotes and optionally starts the artifact.
func (r *runner) Run(ctx context.Context) error {
	r.machine = cycle.NewMachine(func(from, to cycle.State) {
		logger.DebugKV(ctx, "Cycle state changed", "from", from.String(), "to", to.String())
	})

	expected, err := r.cfg.Expected()
	if err != nil {
		return err
	}

	strategy, err := r.strategy(ctx)
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Fetching stage",
		"host", r.cfg.Host, "port", r.cfg.Port, "path", r.cfg.Path, "output", r.cfg.Output)

	result, err := r.fetcher.Fetch(ctx, &fetcher.Request{
		Host:           r.cfg.Host,
		Port:           r.cfg.Port,
		Path:           r.cfg.Path,
		TempPath:       r.cfg.TempPath(),
		ReadBufferSize: r.cfg.ReadBufferSize,
		ReadTimeout:    r.cfg.ReadTimeout,
		Progress:       r.reporter,
		Machine:        r.machine,
	})

	r.reporter.Finish()

	if err != nil {
		return err
	}

	outcome, err := gate.VerifyAndPromote(ctx, &gate.Request{
		TempPath:  result.TempPath,
		FinalPath: r.cfg.Output,
		Expected:  expected,
		Strategy:  strategy,
		Machine:   r.machine,
	})
	if err != nil {
		return err
	}

	logger.InfoKV(ctx, "Stage verified and promoted",
		"path", outcome.Path, "algorithm", outcome.Digest.Algorithm.String(), "digest", outcome.Digest.Hex())

	if !r.cfg.ExecAfter {
		return nil
	}

	if _, err = process.Start(ctx, outcome.Path, r.cfg.ExecArgs...); err != nil {
		return fmt.Errorf("start next stage: %w", err)
	}

	return nil
}

// strategy resolves "auto" by checking whether the final artifact is executing.
func (r *runner) strategy(ctx context.Context) (gate.Strategy, error) {
	if r.cfg.Promotion != config.PromotionAuto {
		return gate.ParseStrategy(r.cfg.Promotion)
	}

	if process.IsRunning(r.cfg.Output) {
		logger.InfoKV(ctx, "Final artifact is running, replacing it in place", "output", r.cfg.Output)

		return gate.StrategyApply, nil
	}

	return gate.StrategyRename, nil
}
