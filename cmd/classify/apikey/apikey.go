package cmd

import (
	"fmt"

	"github.com/cozy-creator/classify-server/internal/config"
	"github.com/cozy-creator/classify-server/internal/db"
	"github.com/cozy-creator/classify-server/internal/db/drivers"
	"github.com/cozy-creator/classify-server/internal/db/migrations"
	"github.com/cozy-creator/classify-server/internal/db/models"
	"github.com/cozy-creator/classify-server/internal/db/repository"
	"github.com/cozy-creator/classify-server/internal/utils/hashutil"
	"github.com/cozy-creator/classify-server/internal/utils/randutil"

	"github.com/spf13/cobra"
)

const keyBytes = 32

var Cmd = &cobra.Command{
	Use:   "api-key",
	Short: "Manage API keys",
}

func init() {
	newAPIKeyCmd := &cobra.Command{
		Use:   "new",
		Short: "Creates a new API key",
		Args:  cobra.NoArgs,
		RunE: withRepository(func(cmd *cobra.Command, repo repository.IAPIKeyRepository, args []string) error {
			key, err := randutil.NewAPIKey(keyBytes)
			if err != nil {
				return err
			}

			apiKey := models.NewAPIKey(hashutil.Sha3256Hash([]byte(key)), randutil.MaskString(key, 8, 4))
			if _, err := repo.Create(cmd.Context(), apiKey); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API key created: %s\n", key)
			fmt.Fprintln(cmd.OutOrStdout(), "Store it now; only its hash is kept.")
			return nil
		}),
	}

	revokeAPIKeyCmd := &cobra.Command{
		Use:   "revoke <key>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: withRepository(func(cmd *cobra.Command, repo repository.IAPIKeyRepository, args []string) error {
			key := args[0]

			revoked, err := repo.RevokeAPIKeyWithHash(cmd.Context(), hashutil.Sha3256Hash([]byte(key)))
			if err != nil {
				return err
			}
			if !revoked {
				return fmt.Errorf("API key %s not found", randutil.MaskString(key, 8, 4))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "API key revoked: %s\n", randutil.MaskString(key, 8, 4))
			return nil
		}),
	}

	listAPIKeysCmd := &cobra.Command{
		Use:   "list",
		Short: "List all API keys",
		Args:  cobra.NoArgs,
		RunE: withRepository(func(cmd *cobra.Command, repo repository.IAPIKeyRepository, args []string) error {
			apiKeys, err := repo.ListAPIKeys(cmd.Context())
			if err != nil {
				return err
			}

			if len(apiKeys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No API keys found")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), "API keys:")
			for _, apiKey := range apiKeys {
				fmt.Fprintf(cmd.OutOrStdout(), "%s (Revoked: %t, Created: %s)\n",
					apiKey.KeyMask, apiKey.IsRevoked, apiKey.CreatedAt.Format("2006-01-02 15:04:05"))
			}

			return nil
		}),
	}

	Cmd.AddCommand(newAPIKeyCmd, revokeAPIKeyCmd, listAPIKeysCmd)
}

type repositoryRunE func(cmd *cobra.Command, repo repository.IAPIKeyRepository, args []string) error

// withRepository opens the configured database, migrates it and hands the
// API key repository to f.
func withRepository(f repositoryRunE) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		driver, err := openDB(cmd)
		if err != nil {
			return err
		}
		defer driver.Close()

		return f(cmd, repository.NewAPIKeyRepository(driver.GetDB()), args)
	}
}

func openDB(cmd *cobra.Command) (drivers.Driver, error) {
	cfg := config.MustGetConfig()
	if !cfg.HistoryEnabled() {
		return nil, fmt.Errorf("db.dsn is not set; API keys need a database")
	}

	driver, err := db.NewConnection(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}

	if err := migrations.Migrate(cmd.Context(), driver.GetDB()); err != nil {
		driver.Close()
		return nil, err
	}

	return driver, nil
}
