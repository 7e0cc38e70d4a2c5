package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/riskscore"
	"github.com/raysh454/shieldsuite/internal/virustotal"
)

func newAnalyzeCommand(root *rootOptions) *cobra.Command {
	var (
		size   int64
		hash   string
		remote bool
	)

	cmd := &cobra.Command{
		Use:   "analyze NAME",
		Short: "Score an APK by name and size without starting the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig()
			if err != nil {
				return err
			}

			var source riskscore.DetectionSource
			if remote {
				vt := virustotal.NewClient(cfg.VirusTotal, logging.Nop(), nil)
				if !vt.Enabled() {
					return virustotal.ErrNoAPIKey
				}
				source = vt
			}
			scorer, err := riskscore.NewScorer(&cfg.Scoring, source, nil)
			if err != nil {
				return err
			}

			d := riskscore.Descriptor{Name: args[0], Hash: hash}
			if cmd.Flags().Changed("size") {
				d.SizeBytes = size
			} else {
				d.SizeUnknown = true
			}

			a, err := scorer.Assess(cmd.Context(), d)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(a, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cmd.Flags().Int64Var(&size, "size", 0, "APK size in bytes (size heuristics are skipped when unset)")
	cmd.Flags().StringVar(&hash, "hash", "", "Identifier for the VirusTotal lookup (default: derived from name and size)")
	cmd.Flags().BoolVar(&remote, "remote", false, "Query VirusTotal (requires an API key)")
	return cmd
}
