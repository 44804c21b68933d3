package main

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/chris/scribe/internal/db"
	"github.com/chris/scribe/internal/scheduler"
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Manage scheduled article summaries",
}

var digestAddCmd = &cobra.Command{
	Use:   "add NAME CRON URL",
	Short: "Summarize URL on a cron schedule",
	Example: `  scribe digest add markets "0 8 * * 1-5" https://example.com/markets
  scribe digest add tech @daily https://example.com/tech`,
	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		name, expr, url := args[0], args[1], args[2]
		if err := scheduler.Validate(expr); err != nil {
			return err
		}
		return withDB(func(database *db.DB) error {
			if _, err := database.CreateDigest(name, expr, url); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added digest %q\n", name)
			return nil
		})
	},
}

var digestListCmd = &cobra.Command{
	Use:   "list",
	Short: "List digests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(database *db.DB) error {
			digests, err := database.ListDigests(false)
			if err != nil {
				return err
			}
			printDigests(cmd.OutOrStdout(), digests)
			return nil
		})
	},
}

var digestRmCmd = &cobra.Command{
	Use:   "rm NAME",
	Short: "Delete a digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(database *db.DB) error {
			return database.DeleteDigest(args[0])
		})
	},
}

var digestEnableCmd = &cobra.Command{
	Use:   "enable NAME",
	Short: "Resume a paused digest",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(database *db.DB) error {
			return database.SetDigestEnabled(args[0], true)
		})
	},
}

var digestDisableCmd = &cobra.Command{
	Use:   "disable NAME",
	Short: "Pause a digest without deleting it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(database *db.DB) error {
			return database.SetDigestEnabled(args[0], false)
		})
	},
}

var digestRunCmd = &cobra.Command{
	Use:   "run NAME",
	Short: "Run a digest now and print the summary",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(true)
		if err != nil {
			return err
		}
		defer a.Close()

		sched := scheduler.New(a.db, a.agent, a.settings, a.cfg.DiscordWebhook, nil)
		summary, err := sched.RunNow(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), summary)
		return nil
	},
}

func init() {
	digestCmd.AddCommand(digestAddCmd, digestListCmd, digestRmCmd, digestEnableCmd, digestDisableCmd, digestRunCmd)
}

func withDB(fn func(*db.DB) error) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(a.db)
}

func printDigests(w io.Writer, digests []db.Digest) {
	if len(digests) == 0 {
		fmt.Fprintln(w, "no digests")
		return
	}
	for _, d := range digests {
		state := "on"
		if !d.Enabled {
			state = "off"
		}
		last := "never"
		if d.LastRun != "" {
			last = sinceLabel(d.LastRun)
		}
		fmt.Fprintf(w, "%-16s %-3s %-14s last run %-14s %s\n", d.Name, state, d.CronExpr, last, d.URL)
	}
}

// sinceLabel turns an SQLite datetime('now') value into "3 hours ago".
func sinceLabel(ts string) string {
	t, err := time.ParseInLocation(time.DateTime, ts, time.UTC)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
