package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func readTranscript(path string) (string, error) {
	if path == "" {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading transcript: %w", err)
	}

	return string(data), nil
}

func newPredictCmd() *cobra.Command {
	var (
		transcriptPath string
		limit          int
	)

	cmd := &cobra.Command{
		Use:   "predict",
		Short: "Predict which concepts are likely to be examined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(transcriptPath)
			if err != nil {
				return err
			}

			preds, err := apiClient.Exam.Predictions(cmd.Context(), transcript, limit)
			if err != nil {
				return fmt.Errorf("exam predictions: %w", err)
			}

			ids := make([]string, len(preds))
			for i, p := range preds {
				ids[i] = p.NodeID
			}

			return render(cmd.OutOrStdout(), preds, ids, func() table {
				t := table{headers: []string{"ID", "LABEL", "PROBABILITY", "CONFIDENCE"}}
				for _, p := range preds {
					t.rows = append(t.rows, []string{p.NodeID, truncate(p.Label, 40), fmtFloat(p.Probability), p.Confidence})
				}

				return t
			})
		},
	}

	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Lecture transcript file used for emphasis scoring")
	cmd.Flags().IntVar(&limit, "limit", 0, "Return only the top N topics")

	return cmd
}

func newPriorityCmd() *cobra.Command {
	var (
		transcriptPath string
		limit          int
	)

	cmd := &cobra.Command{
		Use:   "priority",
		Short: "Rank concepts by study priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(transcriptPath)
			if err != nil {
				return err
			}

			prios, err := apiClient.Exam.Priorities(cmd.Context(), transcript, limit)
			if err != nil {
				return fmt.Errorf("study priorities: %w", err)
			}

			ids := make([]string, len(prios))
			for i, p := range prios {
				ids[i] = p.NodeID
			}

			return render(cmd.OutOrStdout(), prios, ids, func() table {
				t := table{headers: []string{"ID", "LABEL", "PRIORITY", "SCORE", "REASON"}}
				for _, p := range prios {
					t.rows = append(t.rows, []string{p.NodeID, truncate(p.Label, 40), p.Priority, fmtFloat(p.Score), p.Reason})
				}

				return t
			})
		},
	}

	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Lecture transcript file used for emphasis scoring")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum entries to return")

	return cmd
}
