package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/catalogue"
	"github.com/spf13/cobra"
)

var statsJSON bool

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the backup catalogue",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		o, err := newOrchestrator(cmd.Context())
		if err != nil {
			return err
		}
		stats, err := o.Statistics(cmd.Context())
		if err != nil {
			return err
		}
		if statsJSON {
			return printJSON(cmd.OutOrStdout(), stats)
		}
		return printStats(cmd.OutOrStdout(), stats)
	},
}

func printStats(out io.Writer, s catalogue.Statistics) error {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "total backups\t%d\n", s.TotalBackups)
	fmt.Fprintf(w, "total size\t%s\n", humanize.Bytes(uint64(s.TotalSize)))
	for _, k := range backup.Kinds() {
		fmt.Fprintf(w, "%s\t%d\n", k, s.ByType[k])
	}
	fmt.Fprintf(w, "oldest\t%s\n", formatTime(s.OldestBackup))
	fmt.Fprintf(w, "newest\t%s\n", formatTime(s.NewestBackup))
	return w.Flush()
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.RFC3339)
}

func init() {
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the statistics as JSON")
}
