// Package cmd is a thin cobra CLI demonstrating pkg/scmcore's embedding
// API end to end, grounded on the teacher's cmd/dwscript/cmd layout (one
// file per subcommand, a shared rootCmd + Execute in root.go).
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:     "scmcore",
	Short:   "Embeddable Scheme execution core",
	Long:    `scmcore hosts the Scheme execution core described by its spec: a generational-GC value arena, a CEK evaluator with first-class continuations, a concurrency core (tasks, futures, channels, actors, parallel combinators), and a hotspot-driven JIT tier manager.`,
	Version: Version,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf("scmcore version {{.Version}}\nCommit: %s\n", GitCommit))
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
