package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/utils"
	"github.com/spf13/cobra"
)

var (
	flagEmail string
	flagTTL   time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for an existing user",
	Long: `Signs a bearer token with JWT_SECRET for an existing user. Meant for
local testing; production tokens come from the identity service.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagEmail == "" {
			return fmt.Errorf("--email is required")
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		user, err := store.GetUserByEmail(cmd.Context(), models.NormalizeEmail(flagEmail))
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no user with email %s", flagEmail)
		}
		if err != nil {
			return err
		}

		utils.ConfigureJWT(cfg.JWT.Secret)
		token, err := utils.GenerateToken(user.ID, user.Email, flagTTL)
		if err != nil {
			return fmt.Errorf("signing token: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&flagEmail, "email", "", "User email")
	tokenCmd.Flags().DurationVar(&flagTTL, "ttl", 24*time.Hour, "Token lifetime")
	rootCmd.AddCommand(tokenCmd)
}
