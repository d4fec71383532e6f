package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:     "show <id>",
	Short:   "Show a single request",
	GroupID: "requests",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		wait, _ := cmd.Flags().GetBool("wait")

		req, err := watchClient.GetRequest(context.Background(), args[0])
		if err != nil {
			fatalf("%v", err)
		}

		if wait && !req.Status.Terminal() {
			// Long-poll until the request is decided or times out
			// server-side.
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
			defer cancel()
			req, err = watchClient.WaitRequest(ctx, req.ID)
			if err != nil {
				fatalf("%v", err)
			}
		}

		if jsonOutput {
			printJSON(req)
		} else {
			printRequestTable(req)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().BoolP("wait", "w", false, "block until the request is resolved")
}
