package main

import (
	"os"

	"github.com/fotescodev/claude-watch/internal/pairing"
	"github.com/fotescodev/claude-watch/internal/relay"
	"github.com/fotescodev/claude-watch/internal/ui"
	"github.com/spf13/cobra"
)

var (
	serverURL  string
	authToken  string
	pairingID  string
	jsonOutput bool

	watchClient *relay.Client
)

var rootCmd = &cobra.Command{
	Use:   "cw <command>",
	Short: "CLI client for the claude-watch approval server",
	// Flag defaults come from the environment only; the pairing file is
	// read lazily here so subcommands that gate on the environment (the
	// hooks) never touch the filesystem at startup.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !ui.ShouldUseColor() {
			ui.ForceNoColor()
		}
		if serverURL == "" || authToken == "" || pairingID == "" {
			if id, err := pairing.LoadIdentity(); err == nil {
				if serverURL == "" {
					serverURL = id.ServerURL
				}
				if authToken == "" {
					authToken = id.Token
				}
				if pairingID == "" {
					pairingID = id.PairingID
				}
			}
		}
		if serverURL == "" {
			serverURL = "http://localhost:8787"
		}
		watchClient = relay.NewClient(serverURL, authToken)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", os.Getenv(pairing.EnvServerURL), "approval server URL")
	rootCmd.PersistentFlags().StringVar(&authToken, "token", "", "bearer token for the server")
	rootCmd.PersistentFlags().StringVar(&pairingID, "pairing", os.Getenv(pairing.EnvPairingID), "pairing ID identifying this device")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "requests", Title: "Requests:"},
		&cobra.Group{ID: "sessions", Title: "Sessions:"},
		&cobra.Group{ID: "system", Title: "System:"},
	)

	cobra.EnableCommandSorting = false

	// Requests
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(denyCmd)
	rootCmd.AddCommand(answerCmd)
	rootCmd.AddCommand(cancelCmd)
	rootCmd.AddCommand(watchCmd)

	// Sessions
	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(interruptCmd)

	// System
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(pairCmd)
	rootCmd.AddCommand(healthCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
