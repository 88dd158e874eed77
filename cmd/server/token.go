package main

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"notaria/internal/platform/auth"
	"notaria/internal/platform/config"
	id "notaria/pkg/domain"
)

const tokenIssuer = "notaria"

var (
	tokenRole string
	tokenName string
	tokenTTL  time.Duration
)

// tokenCmd mints a staff access token for local testing against the API.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a development access token",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		role, err := id.ParseRole(tokenRole)
		if err != nil {
			return err
		}
		actor := id.Actor{ID: id.ActorID(uuid.New()), Role: role, Name: tokenName}
		token, err := auth.NewTokenService(cfg.JWTSigningKey, tokenIssuer).GenerateAccessToken(actor, tokenTTL)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "ADMIN", "office role (ADMIN, DRAFTER, RECEPTION, ARCHIVE, CASHIER)")
	tokenCmd.Flags().StringVar(&tokenName, "name", "dev", "display name")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 8*time.Hour, "token lifetime")
}
