// Package cli implements the shieldd command line.
package cli

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/raysh454/shieldsuite/internal/app"
)

// Version is overridden at build time with -ldflags "-X .../cli.Version=...".
var Version = "0.1.0"

type rootOptions struct {
	configPath string
}

func (o *rootOptions) loadConfig() (*app.Config, error) {
	return app.LoadConfig(o.configPath)
}

// NewRootCommand builds the shieldd command tree writing to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:           "shieldd",
		Short:         "Mobile security suite backend",
		Long:          "shieldd serves the security suite HTTP API: APK risk scoring, malware\nprotection, live alerts, VPN control, device and app inventory.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(out)
	root.SetErr(out)
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "Path to YAML config (environment variables override it)")

	root.AddCommand(
		newServeCommand(opts),
		newAnalyzeCommand(opts),
		newMalwareCommand(opts),
		newVersionCommand(),
	)
	return root
}

// Execute runs the command line and returns the process exit code.
func Execute(ctx context.Context) int {
	root := NewRootCommand(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		root.PrintErrln("Error:", err)
		return 1
	}
	return 0
}
