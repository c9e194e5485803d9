// Package main provides the entry point for the resforge CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kestrel-tools/resforge/cmd/resforge/commands"
	"github.com/kestrel-tools/resforge/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := &cobra.Command{
		Use:   "resforge",
		Short: "Resforge - resource table compiler and linker",
		Long: `Resforge compiles UI resource descriptions into intermediate tables and
links them, together with library and overlay tables, into one final
resource table.

Commands:
  compile   Compile resource files into intermediate containers
  link      Merge compiled containers into a final table
  dump      Inspect a compiled container`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Add commands.
	rootCmd.AddCommand(commands.NewCompileCommand())
	rootCmd.AddCommand(commands.NewLinkCommand())
	rootCmd.AddCommand(commands.NewDumpCommand())
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "resforge %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}
