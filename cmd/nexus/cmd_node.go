package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/studynexus/nexus/client"
)

// nodeListResult wraps node slices so JSON output is an object.
type nodeListResult struct {
	Nodes []client.Node `json:"nodes"`
}

func newNodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Manage nodes",
	}
	cmd.AddCommand(nodeCreateCmd())
	cmd.AddCommand(nodeGetCmd())
	cmd.AddCommand(nodeUpdateCmd())
	cmd.AddCommand(nodeDeleteCmd())
	cmd.AddCommand(nodeListCmd())
	cmd.AddCommand(nodeSimilarCmd())
	cmd.AddCommand(nodeHistoryCmd())

	return cmd
}

func nodeCreateCmd() *cobra.Command {
	var req client.CreateNodeRequest

	cmd := &cobra.Command{
		Use:   "create <label>",
		Short: "Create a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req.Label = args[0]

			node, err := apiClient.Nodes.Create(cmd.Context(), &req)
			if err != nil {
				return fmt.Errorf("create node: %w", err)
			}

			return render(cmd.OutOrStdout(), node, []string{node.ID}, nodeTable([]client.Node{*node}))
		},
	}
	cmd.Flags().StringVar(&req.Explanation, "explanation", "", "Explanation text")
	cmd.Flags().StringVar(&req.Category, "category", "", "concept|formula|example|trend|definition (default: inferred)")
	cmd.Flags().StringVar(&req.SessionID, "session", "", "Session ID")
	cmd.Flags().StringVar(&req.ParentID, "parent", "", "Parent node ID")

	return cmd
}

func nodeGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Get a node by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			node, err := apiClient.Nodes.Get(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("get node: %w", err)
			}

			return render(cmd.OutOrStdout(), node, []string{node.ID}, nodeTable([]client.Node{*node}))
		},
	}
}

func nodeUpdateCmd() *cobra.Command {
	var label, explanation, category string

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := &client.UpdateNodeRequest{}
			if cmd.Flags().Changed("label") {
				req.Label = &label
			}

			if cmd.Flags().Changed("explanation") {
				req.Explanation = &explanation
			}

			if cmd.Flags().Changed("category") {
				req.Category = &category
			}

			node, err := apiClient.Nodes.Update(cmd.Context(), args[0], req)
			if err != nil {
				return fmt.Errorf("update node: %w", err)
			}

			return render(cmd.OutOrStdout(), node, []string{node.ID}, nodeTable([]client.Node{*node}))
		},
	}
	cmd.Flags().StringVar(&label, "label", "", "New label")
	cmd.Flags().StringVar(&explanation, "explanation", "", "New explanation")
	cmd.Flags().StringVar(&category, "category", "", "New category")

	return cmd
}

func nodeDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a node and every connection to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Nodes.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("delete node: %w", err)
			}

			return render(cmd.OutOrStdout(), map[string]any{"deleted": true, "id": args[0]}, []string{args[0]}, nil)
		},
	}
}

func nodeListCmd() *cobra.Command {
	var opts client.NodeListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := apiClient.Nodes.List(cmd.Context(), &opts)
			if err != nil {
				return fmt.Errorf("list nodes: %w", err)
			}

			return render(cmd.OutOrStdout(), list, nodeIDs(list.Nodes), nodeTable(list.Nodes))
		},
	}
	cmd.Flags().StringVar(&opts.Category, "category", "", "Filter by category")
	cmd.Flags().StringVar(&opts.SessionID, "session", "", "Filter by session ID")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "Max results")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Offset for pagination")

	return cmd
}

func nodeSimilarCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "similar <id>",
		Short: "List the nodes most similar to a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scored, err := apiClient.Nodes.Similar(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("similar nodes: %w", err)
			}

			ids := make([]string, len(scored))
			for i, s := range scored {
				ids[i] = s.ID
			}

			return render(cmd.OutOrStdout(), scored, ids, func() table {
				t := table{headers: []string{"ID", "LABEL", "SIMILARITY"}}
				for _, s := range scored {
					t.rows = append(t.rows, []string{s.ID, truncate(s.Label, 40), fmtFloat(s.Similarity)})
				}

				return t
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 5, "Max results")

	return cmd
}

func nodeHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history <id>",
		Short: "Show a node's review history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			recs, err := apiClient.Nodes.Reviews(cmd.Context(), args[0], limit)
			if err != nil {
				return fmt.Errorf("review history: %w", err)
			}

			return render(cmd.OutOrStdout(), recs, nil, func() table {
				t := table{headers: []string{"REVIEWED AT", "QUALITY", "INTERVAL", "EASE", "MASTERY"}}
				for _, r := range recs {
					t.rows = append(t.rows, []string{
						r.ReviewedAt.Local().Format("2006-01-02 15:04"),
						strconv.Itoa(r.Quality),
						strconv.Itoa(r.Interval) + "d",
						fmtFloat(r.EaseFactor),
						fmtFloat(r.Mastery),
					})
				}

				return t
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Max entries")

	return cmd
}
