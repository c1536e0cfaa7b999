package cmd

import (
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore <key>",
	Short: "Restore a stored backup over the live database and files",
	Long: `Restore extracts the backup stored at <key> (as printed by "bacli list")
and loads its database dump and application files. The restore is
destructive and is not rolled back if it fails part way.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		res, err := o.Restore(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}
