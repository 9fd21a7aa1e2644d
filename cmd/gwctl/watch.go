package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/matheus3301/groupweaver/internal/client"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Short:   "Print real-time events until interrupted",
	GroupID: "daemon",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return c.Watch(ctx, func(e client.Event) error {
			if jsonFlag {
				fmt.Println(string(e.Raw))
				return nil
			}
			fmt.Printf("%-12s %s\n", e.Type, e.Raw)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
