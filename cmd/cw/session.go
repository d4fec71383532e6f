package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fotescodev/claude-watch/internal/model"
	"github.com/spf13/cobra"
)

func requirePairing() string {
	if pairingID == "" {
		fatalf("no pairing ID; run 'cw pair' or pass --pairing")
	}
	return pairingID
}

var sessionCmd = &cobra.Command{
	Use:     "session <start|end|status>",
	Short:   "Manage the agent session for a pairing",
	GroupID: "sessions",
}

var sessionStartCmd = &cobra.Command{
	Use:   "start [session-id]",
	Short: "Mark the session active",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := requirePairing()
		sessionID := ""
		if len(args) > 0 {
			sessionID = args[0]
		}
		if err := watchClient.StartSession(context.Background(), pid, sessionID); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Session started for %s\n", pid)
		return nil
	},
}

var sessionEndCmd = &cobra.Command{
	Use:   "end",
	Short: "End the session, skipping any pending requests",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := requirePairing()
		if err := watchClient.EndSession(context.Background(), pid); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("Session ended for %s\n", pid)
		return nil
	},
}

var sessionStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the session state",
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := requirePairing()
		state, err := watchClient.SessionStatus(context.Background(), pid)
		if err != nil {
			fatalf("%v", err)
		}
		if jsonOutput {
			printJSON(state)
		} else {
			printSessionTable(state)
		}
		return nil
	},
}

var interruptCmd = &cobra.Command{
	Use:     "interrupt <stop|resume|status>",
	Short:   "Pause or resume the agent session",
	GroupID: "sessions",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pid := requirePairing()
		ctx := context.Background()

		switch args[0] {
		case "status":
			interrupted, action, err := watchClient.GetInterrupt(ctx, pid)
			if err != nil {
				fatalf("%v", err)
			}
			if jsonOutput {
				printJSON(map[string]any{"interrupted": interrupted, "action": action})
			} else if interrupted {
				fmt.Printf("Interrupted (%s)\n", action)
			} else {
				fmt.Println("Not interrupted")
			}
		case "stop":
			if err := watchClient.SetInterrupt(ctx, pid, model.InterruptStop); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Session paused for %s\n", pid)
		case "resume":
			if err := watchClient.SetInterrupt(ctx, pid, model.InterruptResume); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("Session resumed for %s\n", pid)
		default:
			fmt.Fprintf(os.Stderr, "Error: unknown action %q (must be stop, resume, or status)\n", args[0])
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	sessionCmd.AddCommand(sessionStartCmd)
	sessionCmd.AddCommand(sessionEndCmd)
	sessionCmd.AddCommand(sessionStatusCmd)
}
