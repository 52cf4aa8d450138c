package cli

import (
	"fmt"
	"os"

	"github.com/docshare/drive/internal/config"
	"github.com/docshare/drive/internal/database"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	flagJSON   bool
	flagSQLite string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "drivectl",
	Short: "Drive administration tool",
	Long: `drivectl runs maintenance tasks directly against the drive database.

  drivectl migrate                    Apply schema migrations
  drivectl fsck                       Check the folder hierarchy for cycles and orphans
  drivectl trash ls --owner EMAIL     Show a user's trash with days until deletion
  drivectl token --email EMAIL        Issue a bearer token for testing`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg = config.Load()
		if flagSQLite != "" {
			cfg.DB.Driver = "sqlite"
			cfg.DB.Path = flagSQLite
		}
		logger.Setup(logger.Options{Level: "warn", Format: "text", Output: cmd.ErrOrStderr()})
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagSQLite, "sqlite", "", "Use the sqlite database at this path instead of DB_* settings")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

// openStore connects to the configured database. The returned close func
// releases the connection pool.
func openStore() (*repository.GormStore, func(), error) {
	db, err := database.Connect(cfg.DB)
	if err != nil {
		return nil, nil, fmt.Errorf("connecting to database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, nil, err
	}
	return repository.NewGormStore(db), func() { _ = sqlDB.Close() }, nil
}
