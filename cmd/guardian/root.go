package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "guardian",
	Short: "Guardian is a natural language to SQL service with human-in-the-loop approval",
	Long: `Guardian translates natural language requests into SQL. Read-only queries
execute automatically; proposed database mutations suspend the session until a
human approves, rejects, or edits them.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().String("config", "", "Path to the YAML config file (default: guardian.yaml)")
}
