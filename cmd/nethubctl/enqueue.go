package main

import (
	"fmt"
	"strings"

	"github.com/gh1989/nethub/pkg/models"
	"github.com/spf13/cobra"
)

func enqueueCmd(a *app) *cobra.Command {
	var (
		jobType  string
		duration int
	)
	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Add a job to the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			jobType = strings.TrimSpace(jobType)
			if jobType == "" {
				jobType = models.DefaultJobType
			}
			if duration < 0 {
				return fmt.Errorf("--duration must not be negative, got %d", duration)
			}

			q, closer, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			job := models.NewJob(jobType, duration)
			if err := q.EnqueueJob(cmd.Context(), job); err != nil {
				return fmt.Errorf("failed to enqueue job: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Job enqueued: %s\n", job.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&jobType, "type", models.DefaultJobType, "Job type")
	cmd.Flags().IntVar(&duration, "duration", models.DefaultDurationSeconds, "Simulated duration in seconds")
	return cmd
}
