package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/spf13/cobra"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		records, err := o.List(cmd.Context())
		if err != nil {
			return err
		}
		if listJSON {
			return printJSON(cmd.OutOrStdout(), records)
		}
		return printRecords(cmd.OutOrStdout(), records, time.Now())
	},
}

func printRecords(out io.Writer, records []backup.Record, now time.Time) error {
	if len(records) == 0 {
		_, err := fmt.Fprintln(out, "no backups")
		return err
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tNAME\tSIZE\tCREATED\tKEY\tDESCRIPTION")
	for _, r := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.Kind,
			r.Name,
			humanize.Bytes(uint64(r.FileSize)),
			humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
			r.FilePath,
			r.Description,
		)
	}
	return w.Flush()
}

func init() {
	listCmd.Flags().BoolVar(&listJSON, "json", false, "print the records as JSON")
}
