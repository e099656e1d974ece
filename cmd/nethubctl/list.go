package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

func listCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs waiting in the queue, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, closer, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			jobs, err := q.GetAllJobs(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list jobs: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(jobs)
			}
			if len(jobs) == 0 {
				fmt.Fprintln(out, "No queued jobs.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tDURATION\tCREATED")
			for _, j := range jobs {
				fmt.Fprintf(tw, "%s\t%s\t%ds\t%s\n", j.ID, j.JobType, j.DurationSeconds, j.CreatedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	return cmd
}
