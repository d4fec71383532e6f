package main

import (
	"fmt"

	"github.com/fotescodev/claude-watch/internal/idgen"
	"github.com/fotescodev/claude-watch/internal/pairing"
	"github.com/spf13/cobra"
)

var pairCmd = &cobra.Command{
	Use:     "pair",
	Short:   "Save the pairing identity for this device",
	GroupID: "system",
	RunE: func(cmd *cobra.Command, args []string) error {
		id, _ := cmd.Flags().GetString("id")
		if id == "" {
			var err error
			id, err = idgen.GenerateWithPrefix("pair-")
			if err != nil {
				fatalf("%v", err)
			}
		}

		identity := pairing.Identity{
			PairingID: id,
			ServerURL: serverURL,
			Token:     authToken,
		}
		if err := pairing.SaveIdentity(identity); err != nil {
			fatalf("%v", err)
		}

		if jsonOutput {
			printJSON(identity)
			return nil
		}
		fmt.Printf("Paired as %s\n", id)
		fmt.Printf("Server:   %s\n", serverURL)
		return nil
	},
}

func init() {
	pairCmd.Flags().String("id", "", "pairing ID to save (generated when empty)")
}
