package system

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/bazaarhq/bazaar_backend/config"
	"github.com/bazaarhq/bazaar_backend/pkg/apikey"
	redispkg "github.com/bazaarhq/bazaar_backend/pkg/redis"
)

func NewAPIKeyCommand() *cobra.Command {
	var (
		userID      string
		permissions []string
	)

	cmd := &cobra.Command{
		Use:   "apikey",
		Short: "Mint an API key and register it in Redis",
		Long: `Mints a new API key, stores its hash in Redis, and prints the raw key once.
The raw key is never stored; losing it means minting a new one.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath, err := cmd.Root().PersistentFlags().GetString("config")
			if err != nil {
				return fmt.Errorf("failed to get config flag: %w", err)
			}
			cfg, err := config.ReadConfig(filepath.Dir(cfgPath))
			if err != nil {
				return fmt.Errorf("failed to read config: %w", err)
			}

			rdb, err := redispkg.New(cfg.Redis)
			if err != nil {
				return fmt.Errorf("failed to connect to redis: %w", err)
			}
			defer rdb.Close()

			raw := make([]byte, 24)
			if _, err := rand.Read(raw); err != nil {
				return fmt.Errorf("failed to generate key material: %w", err)
			}
			rawKey := "bzk_" + hex.EncodeToString(raw)

			key := apikey.Key{
				ID:          uuid.NewString(),
				UserID:      userID,
				Permissions: permissions,
				IsActive:    true,
			}

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := apikey.NewRedisLookup(rdb).Put(ctx, rawKey, key); err != nil {
				return fmt.Errorf("failed to store api key: %w", err)
			}

			fmt.Printf("API key id: %s\n", key.ID)
			fmt.Printf("Raw key (shown once): %s\n", rawKey)
			return nil
		},
	}

	cmd.Flags().StringVar(&userID, "user", "", "user id the key acts as (optional)")
	cmd.Flags().StringSliceVar(&permissions, "perm", nil, "permissions granted to the key (repeatable)")

	return cmd
}
