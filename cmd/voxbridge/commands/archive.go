package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/callwaiting/voxbridge/pkg/archive"
	"github.com/callwaiting/voxbridge/pkg/cli"
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect and export finished sessions",
	Long: `Inspect and export finished sessions.

Sessions are archived per context under ~/.voxbridge/voxbridge/archive/
unless the context sets archive_dir.`,
}

// openArchive opens the archive of the current context.
func openArchive() (*archive.Archive, *cli.Context, error) {
	c, err := getContext()
	if err != nil {
		return nil, nil, err
	}
	paths, err := getPaths()
	if err != nil {
		return nil, nil, err
	}
	a, err := archive.OpenBadger(archive.BadgerOptions{Dir: paths.ArchiveDirFor(c)})
	if err != nil {
		return nil, nil, fmt.Errorf("open archive: %w", err)
	}
	return a, c, nil
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived sessions, newest first",
	Long: `List archived sessions, newest first.

Example:
  voxbridge archive list --limit 10
  voxbridge archive list --day 2024-01-15 --oldest
  voxbridge archive list --since 24h --json --jq '[.[].session.total_messages] | add'`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		opts, err := listOptions(cmd)
		if err != nil {
			return err
		}

		var records []*archive.Record
		for rec, err := range a.List(cmd.Context(), opts) {
			if err != nil {
				return err
			}
			records = append(records, rec)
		}

		if outputJSON || jqQuery != "" || outputFile != "" {
			return outputResult(records)
		}
		if len(records) == 0 {
			cli.PrintInfo("No archived sessions")
			return nil
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "SESSION\tSTARTED\tDURATION\tMESSAGES")
		for _, rec := range records {
			s := rec.Session
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", s.ID, s.StartedAt.Time().Format(time.DateTime), s.Duration().Round(time.Second), s.TotalMessages)
		}
		return w.Flush()
	},
}

func listOptions(cmd *cobra.Command) (archive.ListOptions, error) {
	var opts archive.ListOptions
	flags := cmd.Flags()

	limit, err := flags.GetInt("limit")
	if err != nil {
		return opts, err
	}
	oldest, err := flags.GetBool("oldest")
	if err != nil {
		return opts, err
	}
	opts.Limit, opts.Oldest = limit, oldest

	if day, _ := flags.GetString("day"); day != "" {
		t, err := time.Parse(time.DateOnly, day)
		if err != nil {
			return opts, fmt.Errorf("invalid --day %q: want YYYY-MM-DD", day)
		}
		opts.Day = t
	}
	if since, _ := flags.GetString("since"); since != "" {
		d, err := time.ParseDuration(since)
		if err != nil {
			t, perr := time.Parse(time.RFC3339, since)
			if perr != nil {
				return opts, fmt.Errorf("invalid --since %q: want a duration or RFC 3339 time", since)
			}
			opts.Since = t
		} else {
			opts.Since = time.Now().Add(-d)
		}
	}
	return opts, nil
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <session-id>",
	Short: "Show an archived session and its transcript",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if outputJSON || jqQuery != "" || outputFile != "" {
			return outputResult(rec)
		}

		styles := cli.NewStyles(cli.DefaultTheme)
		s := rec.Session
		fmt.Println(styles.Status.Render(fmt.Sprintf("session %s  started %s  duration %s  messages %d",
			s.ID, s.StartedAt.Time().Format(time.DateTime), s.Duration().Round(time.Second), s.TotalMessages)))
		fmt.Println(styles.RenderTranscript(rec.Messages, 0))
		return nil
	},
}

var archiveExportCmd = &cobra.Command{
	Use:   "export <session-id>",
	Short: "Export a session transcript to a directory or S3",
	Long: `Export a session as <id>/transcript.json and <id>/transcript.txt.

The destination defaults to the context's storage_uri.

Example:
  voxbridge archive export 3f1c... --to ./exports
  voxbridge archive export 3f1c... --to s3://calls/exports`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, c, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		rec, err := a.Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		paths, err := getPaths()
		if err != nil {
			return err
		}
		to, _ := cmd.Flags().GetString("to")
		fs, err := openStorage(c, paths, to)
		if err != nil {
			return err
		}
		uri, err := archive.Export(cmd.Context(), fs, rec)
		if err != nil {
			return err
		}
		cli.PrintSuccess("Exported %s to %s", rec.Session.ID, uri)
		return nil
	},
}

var archiveDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>...",
	Short: "Delete archived sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, _, err := openArchive()
		if err != nil {
			return err
		}
		defer a.Close()

		for _, id := range args {
			if err := a.Delete(context.WithoutCancel(cmd.Context()), id); err != nil {
				return err
			}
			cli.PrintSuccess("Deleted %s", id)
		}
		return nil
	},
}

func init() {
	archiveListCmd.Flags().Int("limit", 20, "maximum number of sessions (0 for all)")
	archiveListCmd.Flags().Bool("oldest", false, "oldest sessions first")
	archiveListCmd.Flags().String("day", "", "only sessions started on this UTC day (YYYY-MM-DD)")
	archiveListCmd.Flags().String("since", "", "only sessions started within a duration (24h) or after a time (RFC 3339)")

	archiveExportCmd.Flags().String("to", "", "destination directory or s3://bucket/prefix")

	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archiveExportCmd)
	archiveCmd.AddCommand(archiveDeleteCmd)
}
