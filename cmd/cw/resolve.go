package main

import (
	"context"
	"os/user"
	"strconv"

	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/spf13/cobra"
)

func resolvedBy() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		return u.Username
	}
	return "cli"
}

var approveCmd = &cobra.Command{
	Use:     "approve <id>",
	Short:   "Approve a pending request",
	GroupID: "requests",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		yes := true
		req, err := watchClient.Resolve(context.Background(), args[0], &model.Decision{
			Approved: &yes,
			By:       resolvedBy(),
		})
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(req)
		} else {
			printRequestTable(req)
		}
		return nil
	},
}

var denyCmd = &cobra.Command{
	Use:     "deny <id>",
	Short:   "Deny a pending request",
	GroupID: "requests",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		no := false
		req, err := watchClient.Resolve(context.Background(), args[0], &model.Decision{
			Approved: &no,
			By:       resolvedBy(),
		})
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(req)
		} else {
			printRequestTable(req)
		}
		return nil
	},
}

var answerCmd = &cobra.Command{
	Use:     "answer <id> <option>",
	Short:   "Answer a question request by option index",
	GroupID: "requests",
	Args:    cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := strconv.Atoi(args[1])
		if err != nil {
			fatalf("invalid option index %q", args[1])
		}
		req, err := watchClient.Resolve(context.Background(), args[0], &model.Decision{
			Selected: &idx,
			By:       resolvedBy(),
		})
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(req)
		} else {
			printRequestTable(req)
		}
		return nil
	},
}

var cancelCmd = &cobra.Command{
	Use:     "cancel <id>",
	Short:   "Cancel a pending request (marks it skipped)",
	GroupID: "requests",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		req, err := watchClient.Cancel(context.Background(), args[0])
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(req)
		} else {
			printRequestTable(req)
		}
		return nil
	},
}
