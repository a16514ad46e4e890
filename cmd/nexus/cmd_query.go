package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/studynexus/nexus/client"
)

func nodeIDs(nodes []client.Node) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	return ids
}

func nodeTable(nodes []client.Node) func() table {
	return func() table {
		t := table{headers: []string{"ID", "LABEL", "CATEGORY", "MASTERY", "LEVEL", "NEXT REVIEW"}}
		for _, n := range nodes {
			next := "-"
			if !n.SRS.NextReview.IsZero() {
				next = n.SRS.NextReview.Local().Format("2006-01-02 15:04")
			}

			t.rows = append(t.rows, []string{
				n.ID, truncate(n.Label, 40), n.Category, fmtFloat(n.VisibleMastery), n.MasteryLevel, next,
			})
		}

		return t
	}
}

func newQueryCmd() *cobra.Command {
	var (
		topK           int
		promptOnly     bool
		tutorOnly      bool
		transcriptPath string
	)

	cmd := &cobra.Command{
		Use:   "query <question...>",
		Short: "Retrieve the concepts relevant to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcript, err := readTranscript(transcriptPath)
			if err != nil {
				return err
			}

			question := strings.Join(args, " ")

			var res *client.QueryResult
			if transcript != "" {
				res, err = apiClient.Query.Tutor(cmd.Context(), question, transcript, topK)
			} else {
				res, err = apiClient.Query.Ask(cmd.Context(), question, topK)
			}
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}

			switch {
			case tutorOnly:
				fmt.Fprintln(cmd.OutOrStdout(), res.TutorPrompt)
				return nil
			case promptOnly:
				fmt.Fprintln(cmd.OutOrStdout(), res.Prompt)
				return nil
			}

			return render(cmd.OutOrStdout(), res, nodeIDs(res.RelevantNodes), nodeTable(res.RelevantNodes))
		},
	}

	cmd.Flags().IntVar(&topK, "top-k", 0, "Number of relevant concepts (server default 5)")
	cmd.Flags().BoolVar(&promptOnly, "prompt", false, "Print only the formatted knowledge context")
	cmd.Flags().BoolVar(&tutorOnly, "tutor", false, "Print only the full tutor prompt")
	cmd.Flags().StringVar(&transcriptPath, "transcript", "", "Lecture transcript to include in the tutor prompt")
	cmd.MarkFlagsMutuallyExclusive("prompt", "tutor")

	return cmd
}

func newPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path <goal...>",
		Short: "Plan a learning path toward a goal concept",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lp, err := apiClient.Query.LearningPath(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("learning path: %w", err)
			}

			if flagFmt == "table" {
				fmt.Fprintf(cmd.OutOrStdout(), "Estimated time: %d min\n", lp.EstimatedMinutes)
			}

			return render(cmd.OutOrStdout(), lp, nodeIDs(lp.Path), nodeTable(lp.Path))
		},
	}
}

func newSuggestCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "suggest <topic...>",
		Short: "Suggest concepts to study next",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sugs, err := apiClient.Query.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return fmt.Errorf("suggest: %w", err)
			}

			ids := make([]string, len(sugs))
			for i, s := range sugs {
				ids[i] = s.Node.ID
			}

			return render(cmd.OutOrStdout(), sugs, ids, func() table {
				t := table{headers: []string{"ID", "LABEL", "REASON"}}
				for _, s := range sugs {
					t.rows = append(t.rows, []string{s.Node.ID, truncate(s.Node.Label, 40), s.Reason})
				}

				return t
			})
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum suggestions (server default 3)")

	return cmd
}
