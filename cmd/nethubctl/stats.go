package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func statsCmd(a *app) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show queued, processing and failed counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			q, closer, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			defer closer.Close()

			st, err := q.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			if asJSON {
				return json.NewEncoder(out).Encode(st)
			}
			fmt.Fprintln(out, "--- Job Queue Status ---")
			fmt.Fprintf(out, "Queued:     %d\n", st.Queued)
			fmt.Fprintf(out, "Processing: %d\n", st.Processing)
			fmt.Fprintf(out, "Failed:     %d\n", st.Failed)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON")
	return cmd
}
