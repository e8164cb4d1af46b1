// Package main provides the metalit CLI entry point.
package main

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

// humanOutput controls whether to use human-readable output
var humanOutput bool

func main() {
	// Optional .env in the project root; absence is not an error.
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(ExitError)
	}
}

var rootCmd = &cobra.Command{
	Use:   "metalit",
	Short: "Literature search and meta-analysis pipeline",
	Long: `metalit searches academic sources, maintains a local paper library,
downloads and extracts PDFs, and runs a TF-IDF/PCA meta-analysis over the
collected corpus.

Canonical state lives in plain files under data/; all commands output JSON
by default for easy scripting.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.Version = Version
}

// getProjectRoot returns the project root: METALIT_ROOT if set, otherwise
// the current directory.
func getProjectRoot() string {
	if root := os.Getenv("METALIT_ROOT"); root != "" {
		return root
	}
	cwd, err := os.Getwd()
	if err != nil {
		exitWithError(ExitError, "getting current directory: %v", err)
	}
	return cwd
}
