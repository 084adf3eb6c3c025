package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "crm",
	Short: "Team task board and association outreach CRM",
	Long: `crm serves the task board, project progress, reminders and the
association triage pipeline over HTTP. The associations subcommands run the
triage parser offline against local files.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringP("env-file", "e", ".env", "dotenv file read before the process environment")
}
