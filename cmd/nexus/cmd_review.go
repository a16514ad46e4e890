package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newReviewCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "review <id> <quality>",
		Short: "Record a review of a node (quality 0-5)",
		Long: `Record a recall attempt and reschedule the node.

Quality: 0 blackout, 1 wrong, 2 hard (wrong but familiar),
3 correct with effort, 4 good, 5 perfect.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := strconv.Atoi(args[1])
			if err != nil || q < 0 || q > 5 {
				return fmt.Errorf("quality must be an integer between 0 and 5, got %q", args[1])
			}

			node, err := apiClient.Nodes.Review(cmd.Context(), args[0], q)
			if err != nil {
				return fmt.Errorf("review: %w", err)
			}

			return render(cmd.OutOrStdout(), node, []string{node.ID}, func() table {
				return table{
					headers: []string{"ID", "LABEL", "QUALITY", "INTERVAL", "EASE", "MASTERY", "NEXT REVIEW"},
					rows: [][]string{{
						node.ID,
						truncate(node.Label, 40),
						node.QualityLabel,
						strconv.Itoa(node.SRS.Interval) + "d",
						fmtFloat(node.SRS.EaseFactor),
						fmtFloat(node.SRS.Mastery),
						node.SRS.NextReview.Local().Format("2006-01-02 15:04"),
					}},
				}
			})
		},
	}
}

func newDueCmd() *cobra.Command {
	var upcoming int

	cmd := &cobra.Command{
		Use:   "due",
		Short: "List nodes due for review",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error

			nodes := nodeListResult{}
			if upcoming > 0 {
				nodes.Nodes, err = apiClient.Reviews.Upcoming(cmd.Context(), upcoming)
			} else {
				nodes.Nodes, err = apiClient.Reviews.Due(cmd.Context())
			}

			if err != nil {
				return fmt.Errorf("list due: %w", err)
			}

			return render(cmd.OutOrStdout(), nodes, nodeIDs(nodes.Nodes), nodeTable(nodes.Nodes))
		},
	}

	cmd.Flags().IntVar(&upcoming, "upcoming", 0, "List nodes due within this many hours instead")

	return cmd
}
