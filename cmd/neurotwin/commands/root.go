package commands

import (
	"github.com/spf13/cobra"
)

var version = "0.3.0"

var rootCmd = &cobra.Command{
	Use:          "neurotwin",
	Short:        "neurotwin - visualization state backend for neural digital twins",
	Long:         "Coordinates brain graph state, selection, level of detail, and clinical context for digital twin visualizations.",
	Version:      version,
	SilenceUsage: true,
}

func init() {
	rootCmd.AddCommand(
		serveCmd(),
		checkCmd(),
	)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}
