package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/studynexus/nexus/internal/models"
)

func newExportCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the full collection to a JSON file",
		Long: `Export every node with its embedding and SRS state to a portable JSON
file. Use 'nexus restore' to load it back.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := apiClient.Export(cmd.Context())
			if err != nil {
				return fmt.Errorf("export failed: %w", err)
			}

			out, err := json.MarshalIndent(data, "", "  ")
			if err != nil {
				return fmt.Errorf("marshalling export: %w", err)
			}

			if outputPath == "-" {
				_, err = cmd.OutOrStdout().Write(out)

				return err
			}

			if outputPath == "" {
				outputPath = fmt.Sprintf("nexus-export-%s.json", time.Now().UTC().Format("20060102T150405Z"))
			}

			if err := os.WriteFile(outputPath, out, 0o600); err != nil {
				return fmt.Errorf("writing export file: %w", err)
			}

			fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d nodes to %s\n", len(data.Nodes), outputPath)

			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "Output file path (default: nexus-export-<timestamp>.json, use - for stdout)")

	return cmd
}

func newRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file.json|->",
		Short: "Replace the collection with an exported snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				raw []byte
				err error
			)

			if args[0] == "-" {
				raw, err = io.ReadAll(cmd.InOrStdin())
			} else {
				raw, err = os.ReadFile(args[0])
			}

			if err != nil {
				return fmt.Errorf("reading snapshot: %w", err)
			}

			var data models.ExportFormat
			if err := json.Unmarshal(raw, &data); err != nil {
				return fmt.Errorf("parsing snapshot: %w", err)
			}

			res, err := apiClient.Import(cmd.Context(), &data)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}

			return render(cmd.OutOrStdout(), res, []string{fmt.Sprint(res.NodesLoaded)}, nil)
		},
	}
}
