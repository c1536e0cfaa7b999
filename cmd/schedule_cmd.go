package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/kebairia/appbackup/internal/backup"
	"github.com/kebairia/appbackup/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Show the configured schedule and the next run of each backup type",
	Long: `schedule prints the cron expression configured for each backup type and
when it fires next. Running the backups is left to cron, systemd timers or
Kubernetes CronJobs invoking "bacli backup --type <type>".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printSchedule(cmd.OutOrStdout(), cfg.Schedules, time.Now())
	},
}

func printSchedule(out io.Writer, s config.ScheduleConfig, now time.Time) error {
	exprs := s.ByKind()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TYPE\tSCHEDULE\tNEXT RUN")
	for _, kind := range backup.Kinds() {
		expr := exprs[kind]
		if expr == "" {
			fmt.Fprintf(w, "%s\t-\tdisabled\n", kind)
			continue
		}
		sched, err := cron.ParseStandard(expr)
		if err != nil {
			return fmt.Errorf("schedules.%s: %w", kind, err)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", kind, expr, sched.Next(now).Format(time.RFC3339))
	}
	return w.Flush()
}
