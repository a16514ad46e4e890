package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show collection statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := apiClient.Stats(cmd.Context())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}

			return render(cmd.OutOrStdout(), s, []string{strconv.Itoa(s.Total)}, func() table {
				return table{
					headers: []string{"TOTAL", "NEW", "LEARNING", "MASTERED", "DUE", "AVG MASTERY"},
					rows: [][]string{{
						strconv.Itoa(s.Total),
						strconv.Itoa(s.New),
						strconv.Itoa(s.Learning),
						strconv.Itoa(s.Mastered),
						strconv.Itoa(s.DueNow),
						fmtFloat(s.AverageMastery),
					}},
				}
			})
		},
	}
}

func newRebuildCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild",
		Short: "Recompute every similarity connection",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := apiClient.Rebuild(cmd.Context()); err != nil {
				return fmt.Errorf("rebuild: %w", err)
			}

			return render(cmd.OutOrStdout(), map[string]bool{"rebuilt": true}, []string{"ok"}, nil)
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check server health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := apiClient.Health(cmd.Context())
			if err != nil {
				return fmt.Errorf("health: %w", err)
			}

			return render(cmd.OutOrStdout(), h, []string{h.Status}, func() table {
				return table{
					headers: []string{"STATUS", "VERSION", "STORAGE", "EMBEDDINGS", "NODES", "WS CLIENTS"},
					rows: [][]string{{
						h.Status,
						h.Version,
						h.Storage + " (" + h.StorageStatus + ")",
						h.Embeddings.Provider,
						strconv.Itoa(h.Nodes),
						strconv.Itoa(h.WSClients),
					}},
				}
			})
		},
	}
}

var errClearNotConfirmed = errors.New("refusing to clear without --yes")

func newClearCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every node on the server",
		Long:  "Delete every node. Take an export first; this cannot be undone.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errClearNotConfirmed
			}

			removed, err := apiClient.Clear(cmd.Context())
			if err != nil {
				return fmt.Errorf("clear: %w", err)
			}

			return render(cmd.OutOrStdout(), map[string]int{"removed": removed}, []string{strconv.Itoa(removed)}, nil)
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm deleting all nodes")

	return cmd
}
