package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/taskdeck/taskdeck/internal/rpc"
	"github.com/taskdeck/taskdeck/internal/ui"
)

// Set at build time via -ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		checkDaemon, _ := cmd.Flags().GetBool("daemon")

		info := map[string]any{
			"version": Version,
			"commit":  Commit,
			"go":      runtime.Version(),
		}

		var health *rpc.HealthResponse
		if checkDaemon {
			if dbPath = findDatabasePath(); dbPath != "" {
				if client, err := rpc.Connect(socketPathFor(dbPath), actor); err == nil {
					health, _ = client.Health()
					client.Close()
				}
			}
			info["daemon"] = health
		}

		if jsonOutput {
			outputJSON(info)
			return nil
		}

		fmt.Printf("td %s (%s, %s)\n", Version, Commit, runtime.Version())
		if checkDaemon {
			if health == nil {
				fmt.Printf("daemon: %s\n", ui.RenderMuted("not running"))
			} else {
				compat := ui.RenderPass("compatible")
				if !health.Compatible {
					compat = ui.RenderFail("incompatible")
				}
				fmt.Printf("daemon: %s %s, up %.0fs, pid %d, %s\n",
					health.Status, health.Version, health.UptimeSeconds, health.PID, compat)
			}
		}
		return nil
	},
}

func init() {
	rpc.ClientVersion = Version
	versionCmd.Flags().Bool("daemon", false, "Also report the workspace daemon's health")
	rootCmd.AddCommand(versionCmd)
}
