package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/leadforge/leadforge/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "leadforge",
	Short: "leadforge - self-improving lead qualification pipeline",
	Long: `leadforge discovers, qualifies and ranks outreach leads. A bagging
ensemble learns the campaign's target profile from LLM-labeled examples and
takes over routine decisions as its confidence grows.`,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("leadforge %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(seedImportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
