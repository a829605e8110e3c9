package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/fieldsafe/sitesync/internal/auth"
	"github.com/fieldsafe/sitesync/internal/config"
	"github.com/spf13/cobra"
)

var (
	tokenUserID int64
	tokenTTL    time.Duration
)

// tokenCmd mints a device bearer token for a user. Used when provisioning
// a mobile client against this server.
var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint a device token for a user",
	RunE:  runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user", 0, "user id to mint the token for")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", 0, "token validity (defaults to the configured token_ttl)")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, args []string) error {
	if tokenUserID <= 0 {
		return errors.New("--user is required and must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ttl := time.Duration(cfg.Auth.TokenTTL)
	if tokenTTL > 0 {
		ttl = tokenTTL
	}

	manager := auth.NewManager([]byte(cfg.Auth.Secret), ttl)
	token, err := manager.Mint(tokenUserID)
	if err != nil {
		return err
	}

	fmt.Println(token)
	return nil
}
