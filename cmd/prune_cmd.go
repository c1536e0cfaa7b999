package cmd

import (
	"errors"
	"fmt"

	"github.com/kebairia/appbackup/internal/backup"
	"github.com/spf13/cobra"
)

var pruneType string

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Apply the retention limit without creating a backup",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		kinds := backup.Kinds()
		if pruneType != "" {
			kind, err := backup.ParseKind(pruneType)
			if err != nil {
				return err
			}
			kinds = []backup.Kind{kind}
		}

		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		var errs []error
		for _, kind := range kinds {
			deleted, err := o.Prune(cmd.Context(), kind)
			for _, key := range deleted {
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", key)
			}
			if err != nil {
				errs = append(errs, err)
			}
		}
		return errors.Join(errs...)
	},
}

func init() {
	pruneCmd.Flags().
		StringVarP(&pruneType, "type", "t", "", "only prune this backup type (default: all)")
}
