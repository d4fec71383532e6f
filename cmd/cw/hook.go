package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fotescodev/claude-watch/internal/hook"
	"github.com/fotescodev/claude-watch/internal/pairing"
	"github.com/fotescodev/claude-watch/internal/relay"
	"github.com/spf13/cobra"
)

// Hook exit codes follow the agent's contract: 0 lets the agent carry
// on (with an optional JSON verdict on stdout), 2 blocks the tool use
// with the stderr text fed back to the agent. A hook must never exit
// non-zero for its own infrastructure problems, so every failure path
// here falls back to 0 and lets the terminal prompt take over.
var hookCmd = &cobra.Command{
	Use:     "hook <approval|question|session-start|session-end>",
	Short:   "Agent hook entry points (reads the tool event from stdin)",
	GroupID: "system",
	// The hooks gate on the environment and the pairing file; the root
	// client setup is skipped so an inactive session costs nothing.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
}

// hookGate returns the relay adapter for this process, or nil when the
// session is not opted in or no pairing exists.
func hookGate() *relay.Adapter {
	identity, ok := pairing.Gate()
	if !ok || identity.PairingID == "" || identity.ServerURL == "" {
		return nil
	}
	client := relay.NewClient(identity.ServerURL, identity.Token)
	return relay.NewAdapter(client, identity.PairingID, relay.NewFileDebounce())
}

var hookApprovalCmd = &cobra.Command{
	Use:   "approval",
	Short: "Gate a sensitive tool use on a remote decision",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter := hookGate()
		if adapter == nil {
			return nil
		}

		ev, err := hook.ParseEvent(os.Stdin)
		if err != nil {
			return nil
		}
		if !hook.NeedsApproval(ev.ToolName) {
			return nil
		}
		req, err := ev.ApprovalRequest()
		if err != nil {
			return nil
		}

		outcome, _, _ := adapter.OpenAndWait(context.Background(), req)
		switch outcome {
		case relay.OutcomeAllow:
			os.Stdout.Write(hook.AllowOutput())
			fmt.Println()
		case relay.OutcomeProceed:
			fmt.Fprintln(os.Stderr, "Approval server unavailable. Using terminal mode.")
		case relay.OutcomeSessionEnded:
			fmt.Fprintln(os.Stderr, "Watch session ended. Using terminal mode.")
		case relay.OutcomePaused:
			fmt.Fprintln(os.Stderr, "Session paused from the device. Resume to continue.")
			os.Exit(2)
		default:
			fmt.Fprintln(os.Stderr, "Action rejected from the device.")
			os.Exit(2)
		}
		return nil
	},
}

var hookQuestionCmd = &cobra.Command{
	Use:   "question",
	Short: "Route a single-choice question to the paired device",
	RunE: func(cmd *cobra.Command, args []string) error {
		adapter := hookGate()
		if adapter == nil {
			return nil
		}

		ev, err := hook.ParseEvent(os.Stdin)
		if err != nil {
			return nil
		}
		q, err := ev.ExtractQuestion()
		if err != nil || q == nil {
			return nil
		}

		outcome, decided, _ := adapter.OpenAndWait(context.Background(), q.Request)
		// Any outcome other than a selected answer (timeout, pause,
		// session end, unreachable server) leaves the question for the
		// terminal.
		if outcome != relay.OutcomeAnswered || decided == nil || decided.Selected == nil {
			return nil
		}
		idx := *decided.Selected
		if idx < 0 || idx >= len(decided.Options) {
			return nil
		}
		os.Stdout.Write(hook.AnswerOutput(q.Header, decided.Options[idx].Label))
		fmt.Println()
		return nil
	},
}

var hookSessionStartCmd = &cobra.Command{
	Use:   "session-start",
	Short: "Report the agent session as active",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, ok := pairing.Gate()
		if !ok || identity.PairingID == "" || identity.ServerURL == "" {
			return nil
		}
		ev, _ := hook.ParseEvent(os.Stdin)
		sessionID := ""
		if ev != nil {
			sessionID = ev.SessionID
		}
		client := relay.NewClient(identity.ServerURL, identity.Token)
		if err := client.StartSession(context.Background(), identity.PairingID, sessionID); err != nil {
			fmt.Fprintf(os.Stderr, "Session start not reported: %v\n", err)
		}
		return nil
	},
}

var hookSessionEndCmd = &cobra.Command{
	Use:   "session-end",
	Short: "Report the agent session as ended",
	RunE: func(cmd *cobra.Command, args []string) error {
		identity, ok := pairing.Gate()
		if !ok || identity.PairingID == "" || identity.ServerURL == "" {
			return nil
		}
		client := relay.NewClient(identity.ServerURL, identity.Token)
		if err := client.EndSession(context.Background(), identity.PairingID); err != nil {
			fmt.Fprintf(os.Stderr, "Session end not reported: %v\n", err)
		}
		return nil
	},
}

func init() {
	hookCmd.AddCommand(hookApprovalCmd)
	hookCmd.AddCommand(hookQuestionCmd)
	hookCmd.AddCommand(hookSessionStartCmd)
	hookCmd.AddCommand(hookSessionEndCmd)
}
