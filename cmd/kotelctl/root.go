package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.3.0"

var (
	// rootCmd represents the base command when called without any subcommands
	rootCmd = &cobra.Command{
		Use:   "kotelctl",
		Short: "pellet boiler controller client",
		Long: fmt.Sprintf(`kotelctl (v%s)

Reads status, statistics and configuration of a pellet boiler controller
and changes its settings. The device is reached through the WebSocket
channel of its web page; the first connection pairs with the device using
the code shown on its display.`, Version),
		SilenceUsage: true,
	}
	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the version number of kotelctl",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("kotelctl v%s\n", Version)
		},
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	setupClientFlags(rootCmd)

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(fuelCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(codeCmd)
	rootCmd.AddCommand(unpairCmd)
	rootCmd.AddCommand(logoutCmd)
	rootCmd.AddCommand(ssidCmd)
	rootCmd.AddCommand(tasksCmd)
	rootCmd.AddCommand(rebootCmd)
	rootCmd.AddCommand(clearStatsCmd)
}

// Execute runs the root command. It is called once by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
