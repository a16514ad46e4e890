package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/studynexus/nexus/client"
)

var errNoConcepts = errors.New("file contains no concepts")

func newImportCmd() *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "import <file.yaml|file.json>",
		Short: "Import extracted lecture concepts",
		Long: `Import a batch of concepts into the graph. The file is YAML or JSON,
either a list of {keyword, explanation, timestamp} entries or an object
with session_id and concepts keys.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}

			req, err := parseConcepts(data)
			if err != nil {
				return fmt.Errorf("parsing %s: %w", args[0], err)
			}

			if sessionID != "" {
				req.SessionID = sessionID
			}

			resp, err := apiClient.Concepts.Import(cmd.Context(), req)
			if err != nil {
				return fmt.Errorf("import concepts: %w", err)
			}

			return render(cmd.OutOrStdout(), resp, resp.NodeIDs, nil)
		},
	}

	cmd.Flags().StringVar(&sessionID, "session", "", "Session ID to tag the concepts with")

	return cmd
}

// parseConcepts accepts either form of concept file, in JSON or YAML.
func parseConcepts(data []byte) (*client.ImportConceptsRequest, error) {
	unmarshal := yaml.Unmarshal
	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[') {
		unmarshal = json.Unmarshal
	}

	var req client.ImportConceptsRequest

	if err := unmarshal(data, &req); err != nil {
		var list []client.Concept
		if lerr := unmarshal(data, &list); lerr != nil {
			return nil, err
		}

		req = client.ImportConceptsRequest{Concepts: list}
	}

	if len(req.Concepts) == 0 {
		return nil, errNoConcepts
	}

	for i, c := range req.Concepts {
		if c.Keyword == "" {
			return nil, fmt.Errorf("concept %d: keyword is required", i+1)
		}
	}

	return &req, nil
}
