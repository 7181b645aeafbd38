package main

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

var version = "dev"

var noColor bool

var rootCmd = &cobra.Command{
	Use:   "clipd",
	Short: "Clipboard history daemon and client",
	Long: `clipd captures clipboard changes into a searchable local history and
serves it to UI clients over HTTP, SSE, and MCP. The same binary is the
daemon (clipd start) and the client for everything else.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if !noColor {
			if os.Getenv("NO_COLOR") != "" || !isatty.IsTerminal(os.Stdout.Fd()) {
				noColor = true
			}
		}
	},
	SilenceUsage:  true,
	SilenceErrors: true,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the clipd version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("clipd " + version)
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(restoreCmd)
	rootCmd.AddCommand(openCmd)
	rootCmd.AddCommand(favoriteCmd)
	rootCmd.AddCommand(pinCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(pauseCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v", err)
		os.Exit(1)
	}
}
