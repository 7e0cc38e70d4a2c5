package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/raysh454/shieldsuite/internal/logging"
	"github.com/raysh454/shieldsuite/internal/malwaredb"
)

func newMalwareCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "malware",
		Short: "Manage the known-malware database",
	}
	cmd.AddCommand(newMalwareImportCommand(root), newMalwareListCommand(root))
	return cmd
}

func newMalwareImportCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Import a hash feed (hash[,package[,reason]] per line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			entries, err := malwaredb.ParseFeed(f)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			store, closeDB, err := openMalwareStore(cmd, root)
			if err != nil {
				return err
			}
			defer closeDB()

			added, err := store.Import(cmd.Context(), entries)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d new of %d entries (%d known)\n", added, len(entries), store.Count())
			return nil
		},
	}
}

func newMalwareListCommand(root *rootOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known malware hashes, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, closeDB, err := openMalwareStore(cmd, root)
			if err != nil {
				return err
			}
			defer closeDB()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%s\t%s\n", e.Hash, e.Source, e.PackageName, e.Reason)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum entries to print (0 for all)")
	return cmd
}

func openMalwareStore(cmd *cobra.Command, root *rootOptions) (*malwaredb.Store, func(), error) {
	cfg, err := root.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	db, err := cfg.OpenStorage()
	if err != nil {
		return nil, nil, err
	}
	store, err := malwaredb.NewStore(cmd.Context(), db, logging.Nop())
	if err != nil {
		db.Close()
		return nil, nil, err
	}
	return store, func() { db.Close() }, nil
}
