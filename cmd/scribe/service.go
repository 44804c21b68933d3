package main

import (
	"errors"
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/chris/scribe/internal/service"
)

var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Run the bot as a launchd agent (macOS)",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if runtime.GOOS != "darwin" {
			return errors.New("service management needs launchd (macOS)")
		}
		return nil
	},
}

func init() {
	paths := service.DefaultPaths
	serviceCmd.AddCommand(
		&cobra.Command{Use: "install", Short: "Install and load the agent", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				p := paths()
				if err := service.Install(p); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "installed %s, logs in %s\n", p.Plist, p.StdoutLog)
				return nil
			}},
		&cobra.Command{Use: "uninstall", Short: "Unload and remove the agent", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error { return service.Uninstall(paths()) }},
		&cobra.Command{Use: "start", Short: "Start the agent", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error { return service.Start() }},
		&cobra.Command{Use: "stop", Short: "Stop the agent", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error { return service.Stop() }},
		&cobra.Command{Use: "status", Short: "Show launchd status", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error { return service.Status() }},
		&cobra.Command{Use: "logs", Short: "Follow the agent logs", Args: cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error { return service.Logs(paths()) }},
	)
}
