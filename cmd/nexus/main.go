package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/studynexus/nexus/client"
)

// Build-time variables set via ldflags.
var (
	version   = "0.1.0"
	commit    = ""
	buildDate = ""
)

const defaultURL = "http://localhost:3030"

var (
	apiClient *client.Client
	flagURL   string
	flagFmt   string
)

func versionString() string {
	if commit != "" && buildDate != "" {
		return fmt.Sprintf("nexus version %s (commit: %s, built: %s)", version, commit, buildDate)
	}

	return fmt.Sprintf("nexus version %s-dev", version)
}

type configFile struct {
	URL           string                   `yaml:"url"`
	Profiles      map[string]configProfile `yaml:"profiles"`
	ActiveProfile string                   `yaml:"active_profile"`
}

type configProfile struct {
	URL string `yaml:"url"`
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "nexus",
		Short:   "nexus: knowledge graph and spaced repetition for lecture concepts",
		Version: versionString(),
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			resolveConfig()
			apiClient = client.New(flagURL)
		},
		SilenceUsage: true,
	}
	root.SetVersionTemplate("{{.Version}}\n")

	root.PersistentFlags().StringVar(&flagURL, "url", defaultURL, "nexus server URL (env: NEXUS_URL)")
	root.PersistentFlags().StringVar(&flagFmt, "format", "json", "Output format: json|table|quiet")

	root.AddCommand(newServeCmd())
	root.AddCommand(newImportCmd())
	root.AddCommand(newQueryCmd())
	root.AddCommand(newPathCmd())
	root.AddCommand(newSuggestCmd())
	root.AddCommand(newReviewCmd())
	root.AddCommand(newDueCmd())
	root.AddCommand(newPredictCmd())
	root.AddCommand(newPriorityCmd())
	root.AddCommand(newNodeCmd())
	root.AddCommand(newStatsCmd())
	root.AddCommand(newRebuildCmd())
	root.AddCommand(newClearCmd())
	root.AddCommand(newHealthCmd())
	root.AddCommand(newExportCmd())
	root.AddCommand(newRestoreCmd())

	return root
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// resolveConfig fills flagURL from, in order, the flag, NEXUS_URL and the
// active profile in ~/.nexus/config.yaml.
func resolveConfig() {
	if flagURL == defaultURL {
		if v := os.Getenv("NEXUS_URL"); v != "" {
			flagURL = v
		}
	}

	if flagURL != defaultURL {
		return
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return
	}

	data, err := os.ReadFile(filepath.Join(home, ".nexus", "config.yaml"))
	if err != nil {
		return
	}

	var cfg configFile
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return
	}

	resolved := cfg.URL

	if cfg.Profiles != nil {
		name := cfg.ActiveProfile
		if name == "" {
			name = "default"
		}

		if p, ok := cfg.Profiles[name]; ok && p.URL != "" {
			resolved = p.URL
		}
	}

	if resolved != "" {
		flagURL = resolved
	}
}
