package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "feedback-triage",
	Short: "Classify, correct and report on customer feedback",
	Long: `feedback-triage classifies incoming customer feedback with an LLM,
records reviewer corrections and reports on classifier accuracy.

Configuration is read from environment variables.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, reportCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
