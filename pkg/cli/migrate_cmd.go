package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	internaldb "principal-registry/internal/db"
)

func newMigrateCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := g.openStore(cmd)
			if err != nil {
				return err
			}
			defer store.Close() //nolint:errcheck

			version, err := internaldb.MigrationVersion(store.Write)
			if err != nil {
				return fmt.Errorf("read schema version: %w", err)
			}
			if getOutputFormat(cmd) == "json" {
				return PrintJSON(cmd.OutOrStdout(), map[string]interface{}{"db": g.db, "version": version})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s at schema version %d\n", g.db, version)
			return nil
		},
	}
}
