package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joestump/newswire/internal/build"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "newswire",
		Short: "A small newsroom publishing site",
		Long:  "NewsWire publishes categorized articles written by signed-in authors.",
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), build.String())
		},
	})

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
