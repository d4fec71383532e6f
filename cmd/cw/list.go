package main

import (
	"context"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:     "list",
	Short:   "List approval and question requests",
	GroupID: "requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		all, _ := cmd.Flags().GetBool("all")

		requests, err := watchClient.ListRequests(context.Background(), pairingID, !all)
		if err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(requests)
		} else {
			printRequestListTable(requests)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().BoolP("all", "a", false, "include resolved requests")
}
