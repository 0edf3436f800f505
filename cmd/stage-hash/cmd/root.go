package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/stage-loader/internal/domain/cycle"
	"github.com/oshokin/stage-loader/internal/service/hasher"
	"github.com/oshokin/stage-loader/internal/version"
)

var (
	// algorithm selects the digest function.
	algorithm string
	// expected turns the command into a verification.
	expected string

	// rootCmd represents the base command for printing file digests.
	rootCmd = &cobra.Command{
		Use:   "stage-hash <file>...",
		Short: "Print the digest a stage-loader configuration expects for a file",
		Long: `Prints the lowercase hex digest of every file. With --expect the command exits
with code 7 when a file does not match.`,
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := &hasher.Options{
				Paths:     args,
				Algorithm: algorithm,
				Expected:  expected,
				Stdout:    cmd.OutOrStdout(),
			}

			return hasher.Run(ctx, options)
		},
	}
)

// Execute runs the stage-hash CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		_, _ = os.Stderr.WriteString(err.Error() + "\n")

		os.Exit(cycle.ExitCode(err))
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "digest algorithm: sha512, sha256, sha3-512, blake2b-512")
	rootCmd.Flags().StringVarP(&expected, "expect", "e", "", "expected lowercase hex digest")
}
