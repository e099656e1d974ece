package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gh1989/nethub/internal/queue"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func getCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid job id %q: %w", args[0], err)
			}

			q, closer, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			job, err := q.GetJob(cmd.Context(), id)
			if errors.Is(err, queue.ErrNotFound) {
				return fmt.Errorf("job %s not found", id)
			}
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(job)
		},
	}
}
