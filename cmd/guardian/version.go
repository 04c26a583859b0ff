package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/aretw0/guardian"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of guardian",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("guardian version %s\n", strings.TrimSpace(guardian.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
