package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/matheus3301/groupweaver/internal/client"
	"github.com/matheus3301/groupweaver/internal/lock"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show whether the profile's daemon is running and ready",
	GroupID: "daemon",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := profilePaths()
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
		defer cancel()

		report := struct {
			Profile string `json:"profile"`
			Running bool   `json:"running"`
			PID     int    `json:"pid,omitempty"`
			Health  string `json:"health"`
			Socket  string `json:"socket"`
		}{Profile: paths.Name, Socket: paths.SocketPath(), Health: "UNKNOWN"}

		st, err := client.Status(ctx, paths.SocketPath())
		switch {
		case err == nil:
			report.Running = true
			report.Health = st.String()
		case !errors.Is(err, client.ErrNotRunning):
			return err
		}
		if pid, err := lock.ReadPID(paths.LockPath()); err == nil {
			report.PID = pid
		} else if !errors.Is(err, fs.ErrNotExist) {
			return err
		}

		if jsonFlag {
			return outputJSON(report)
		}
		fmt.Printf("Profile: %s\n", report.Profile)
		if !report.Running {
			fmt.Println("Status:  not running")
			return nil
		}
		fmt.Printf("Status:  %s\n", report.Health)
		if report.PID > 0 {
			fmt.Printf("PID:     %d\n", report.PID)
		}
		return nil
	},
}

var connectionsCmd = &cobra.Command{
	Use:     "connections",
	Short:   "Show live subscribers and devices seen since start",
	GroupID: "daemon",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		conns, err := c.Connections(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(conns)
		}
		fmt.Printf("Active connections: %d\n", conns.ActiveConnections)
		for device, seen := range conns.ConnectedDevices {
			fmt.Printf("  %-24s last sync %s\n", device, seen.Local().Format(time.DateTime))
		}
		return nil
	},
}

var logsCmd = &cobra.Command{
	Use:     "logs",
	Short:   "Show or clear the activity log",
	GroupID: "daemon",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		if clearLogs, _ := cmd.Flags().GetBool("clear"); clearLogs {
			if err := c.ClearLogs(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("Logs cleared")
			return nil
		}

		logs, err := c.Logs(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(logs)
		}
		for _, e := range logs {
			line := fmt.Sprintf("%s  %-8s %s", e.Timestamp.Local().Format(time.DateTime), e.Status, e.Action)
			if e.Details != nil {
				line += " (" + *e.Details + ")"
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	logsCmd.Flags().Bool("clear", false, "empty the activity log")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(connectionsCmd)
	rootCmd.AddCommand(logsCmd)
}
