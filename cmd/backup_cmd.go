package cmd

import (
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/spf13/cobra"
)

var (
	backupType        string
	backupDescription string
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a full, database or files backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		kind, err := backup.ParseKind(backupType)
		if err != nil {
			return err
		}
		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		res, err := o.Create(cmd.Context(), kind, backupDescription)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), res)
	},
}

func init() {
	backupCmd.Flags().
		StringVarP(&backupType, "type", "t", string(backup.KindFull), "backup type: full, database or files")
	backupCmd.Flags().
		StringVarP(&backupDescription, "description", "d", "", "free-text description stored in the metadata")
}
