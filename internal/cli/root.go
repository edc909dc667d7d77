package cli

import (
	"context"
	"fmt"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	version string // semantic version (e.g., "v1.2.3")
	commit  string // git commit SHA
	date    string // build timestamp
)

// SetVersion sets the version information displayed by --version.
// This is typically called by the main package during initialization with
// values injected via ldflags at build time.
func SetVersion(v, c, d string) {
	version = v
	commit = c
	date = d
}

// Execute runs the s2gpp CLI and returns an error if any command fails.
//
// Logging:
//   - Default: info level (logs to stderr)
//   - With --verbose (-v), or S2GPP_LOG=debug: debug level
//
// The logger is attached to the context and accessible to all commands via
// loggerFromContext.
func Execute() error {
	var verbose bool

	root := &cobra.Command{
		Use:          "s2gpp",
		Short:        "Series2Graph++ distributed multivariate time-series anomaly detector",
		Long:         `s2gpp embeds, rotates, and angularly segments a multivariate time series into a graph, then scores query windows against that graph for anomalies. A run is one peer's worth of work; n_cluster_nodes>1 runs cooperate over separate processes.`,
		Version:      version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := charmlog.InfoLevel
			if verbose || os.Getenv("S2GPP_LOG") == "debug" {
				level = charmlog.DebugLevel
			}
			logger := newLogger(os.Stderr, level)
			logger.SetPrefix("[S2G++]")
			ctx := withLogger(cmd.Context(), logger)
			cmd.SetContext(ctx)
		},
	}

	root.SetVersionTemplate(fmt.Sprintf("s2gpp %s\ncommit: %s\nbuilt: %s\n", version, commit, date))
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")

	root.AddCommand(newRunCmd())
	root.AddCommand(newVersionCmd())

	return root.ExecuteContext(context.Background())
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("s2gpp %s\ncommit: %s\nbuilt: %s\n", version, commit, date)
			return nil
		},
	}
}
