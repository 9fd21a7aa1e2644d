package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/matheus3301/groupweaver/internal/model"
	"github.com/spf13/cobra"
)

var listsCmd = &cobra.Command{
	Use:     "lists",
	Short:   "Show stored broadcast lists",
	GroupID: "lists",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		lists, err := c.Lists(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(lists)
		}
		if len(lists) == 0 {
			fmt.Println("No lists")
			return nil
		}
		for _, l := range lists {
			origin := l.SyncedFrom
			if l.IsAutoGenerated {
				origin = "generated"
			}
			if origin == "" {
				origin = "-"
			}
			fmt.Printf("%-20s %-30s %4d members  %s\n", l.ID, l.Name, len(l.Members), origin)
		}
		return nil
	},
}

var commonCmd = &cobra.Command{
	Use:     "common",
	Short:   "Show members that appear in two or more lists",
	GroupID: "lists",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.CommonMembers(cmd.Context())
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(res)
		}
		if res.Message != "" {
			fmt.Println(res.Message)
			return nil
		}
		fmt.Printf("%d common members across %d lists\n", res.TotalCommon, res.SourceListsCount)
		for _, m := range res.CommonMembers {
			fmt.Printf("  %-24s %-16s in %d: %s\n", m.Name, m.Phone, m.AppearsIn, strings.Join(m.ListNames, ", "))
		}
		return nil
	},
}

var syncCmd = &cobra.Command{
	Use:     "sync",
	Short:   "Push lists from a JSON file as if a device had synced them",
	GroupID: "lists",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		device, _ := cmd.Flags().GetString("device")
		file, _ := cmd.Flags().GetString("file")

		lists, err := readLists(file)
		if err != nil {
			return err
		}

		c, err := newClient()
		if err != nil {
			return err
		}
		res, err := c.Sync(cmd.Context(), device, lists)
		if err != nil {
			return err
		}
		if jsonFlag {
			return outputJSON(res)
		}
		fmt.Printf("Synced %d lists from %s (%d stored)\n", res.Synced, device, res.Total)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete [list-id...]",
	Short:   "Delete one or more lists",
	GroupID: "lists",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := newClient()
		if err != nil {
			return err
		}
		var failed error
		for _, id := range args {
			if err := c.Delete(cmd.Context(), id); err != nil {
				fmt.Fprintf(os.Stderr, "failed to delete %s: %v\n", id, err)
				failed = errors.Join(failed, err)
				continue
			}
			fmt.Printf("DELETED %s\n", id)
		}
		return failed
	},
}

// readLists decodes either a bare JSON array of lists or a sync request body
// with a "lists" field. "-" reads stdin.
func readLists(path string) ([]model.BroadcastList, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read lists: %w", err)
	}

	var lists []model.BroadcastList
	if err := json.Unmarshal(data, &lists); err == nil {
		return lists, nil
	}
	var req model.SyncRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("decode lists: %w", err)
	}
	return req.Lists, nil
}

func init() {
	syncCmd.Flags().String("device", "gwctl", "device id to sync as")
	syncCmd.Flags().String("file", "-", "JSON file holding the lists (- for stdin)")

	rootCmd.AddCommand(listsCmd)
	rootCmd.AddCommand(commonCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(deleteCmd)
}
