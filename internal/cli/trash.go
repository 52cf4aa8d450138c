package cli

import (
	"errors"
	"fmt"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/internal/services"
	"github.com/spf13/cobra"
)

var flagOwner string

var trashCmd = &cobra.Command{
	Use:   "trash",
	Short: "Inspect trashed resources",
}

var trashLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List a user's trash",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if flagOwner == "" {
			return fmt.Errorf("--owner is required")
		}

		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		owner, err := store.GetUserByEmail(cmd.Context(), models.NormalizeEmail(flagOwner))
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("no user with email %s", flagOwner)
		}
		if err != nil {
			return err
		}

		lifecycle := services.NewLifecycleService(store, nil, nil, nil, cfg.Trash.GraceDays)
		items, err := lifecycle.ListTrash(cmd.Context(), owner.ID)
		if err != nil {
			return fmt.Errorf("listing trash: %w", err)
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			writeJSON(out, items)
			return nil
		}
		trashTable(out, items)
		return nil
	},
}

func init() {
	trashLsCmd.Flags().StringVar(&flagOwner, "owner", "", "Owner email")
	trashCmd.AddCommand(trashLsCmd)
	rootCmd.AddCommand(trashCmd)
}
