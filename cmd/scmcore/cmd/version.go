package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the scmcore version",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Printf("scmcore version %s (commit %s)\n", Version, GitCommit)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
