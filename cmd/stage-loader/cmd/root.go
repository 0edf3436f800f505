package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/stage-loader/internal/config"
	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/service/loader"
	"github.com/oshokin/stage-loader/internal/version"
)

// ExpectedDigest can be fixed at build time with
// -ldflags "-X github.com/oshokin/stage-loader/cmd/stage-loader/cmd.ExpectedDigest=<hex>".
//
//nolint:gochecknoglobals // Injected by the linker.
var ExpectedDigest string

var (
	// configPath to the configuration YAML file.
	configPath string
	// overrides collects flag values that replace configuration entries.
	overrides loader.Overrides

	// rootCmd represents the base command for one fetch-verify-promote cycle.
	rootCmd = &cobra.Command{
		Use:   "stage-loader [host]",
		Short: "Download a stage over plain HTTP, verify its digest and promote it",
		Long: `Downloads a single payload over unencrypted HTTP/1.1, writes it to "<output>.tmp",
verifies it against the expected digest and renames it to <output> only on a match.

Exit codes: 0 success, 1 usage, 2 resolution, 3 connect, 4 send, 5 malformed response,
6 truncated body, 7 digest mismatch, 8 promotion failure, 9 local file error.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			if len(args) > 0 {
				overrides.Host = args[0]
			}

			if overrides.ExpectedDigest == "" {
				overrides.ExpectedDigest = ExpectedDigest
			}

			options := &loader.Options{
				ConfigPath:     configPath,
				ConfigExplicit: cmd.Flags().Changed("config"),
				Overrides:      overrides,
				Stdout:         cmd.OutOrStdout(),
			}

			return loader.Run(ctx, options)
		},
	}
)

// Execute runs the stage-loader CLI and exits with the code of the failure kind.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")

		os.Exit(cycle.ExitCode(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := rootCmd.Flags()

	// Setup command flags with consistent naming and descriptions.
	flags.StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	flags.IntVarP(&overrides.Port, "port", "p", 0, "server port (default 80)")
	flags.StringVar(&overrides.Path, "path", "", "request path (default /<expected digest>)")
	flags.StringVarP(&overrides.ExpectedDigest, "digest", "d", "", "expected lowercase hex digest")
	flags.StringVarP(&overrides.Algorithm, "algorithm", "a", "", "digest algorithm: sha512, sha256, sha3-512, blake2b-512")
	flags.StringVarP(&overrides.Output, "output", "o", "", "final artifact path (default \"stage\")")
	flags.StringVar(&overrides.Promotion, "promotion", "", "promotion strategy: auto, rename, apply")
	flags.BoolVarP(&overrides.Quiet, "quiet", "q", false, "disable the progress indicator")
	flags.BoolVar(&overrides.ExecAfter, "exec", false, "start the promoted artifact")
	flags.StringArrayVar(&overrides.ExecArgs, "exec-arg", nil, "argument passed to the started artifact (repeatable)")
	flags.StringVar(&overrides.LogLevel, "log-level", "", "log level: debug, info, warn, error")
}
