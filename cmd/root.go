package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "hojas",
	Short: "Spanish worksheet generator",
	Long: "hojas generates Spanish grammar worksheets with an LLM, stores one per " +
		"subscriber, and emails them on a rolling schedule.",
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (overrides HOJAS_CONFIG env var)")
	rootCmd.PersistentFlags().String("db", "", "Database DSN or SQLite file (overrides HOJAS_DB env var)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(worksheetCmd)
	rootCmd.AddCommand(testEmailCmd)
	rootCmd.AddCommand(previewCmd)
	rootCmd.AddCommand(userCmd)
	rootCmd.AddCommand(recipientCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(llmCmd)
	rootCmd.AddCommand(themesCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(versionCmd)
}
