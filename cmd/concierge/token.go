package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aiox-platform/concierge/internal/auth"
	"github.com/aiox-platform/concierge/internal/config"
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an access token for an actor",
	RunE: func(cmd *cobra.Command, args []string) error {
		actor, _ := cmd.Flags().GetString("actor")
		asJSON, _ := cmd.Flags().GetBool("json")

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if len(cfg.JWT.Secret) < 32 {
			return fmt.Errorf("JWT_SECRET must be at least 32 characters")
		}

		tok, err := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry).Generate(actor)
		if err != nil {
			return err
		}

		if asJSON {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(tok)
		}
		fmt.Fprintln(cmd.OutOrStdout(), tok.AccessToken)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)

	tokenCmd.Flags().String("actor", "", "Actor id to put in the token")
	tokenCmd.Flags().Bool("json", false, "Print the token with its expiry as JSON")
	_ = tokenCmd.MarkFlagRequired("actor")
}
