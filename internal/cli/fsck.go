package cli

import (
	"fmt"

	"github.com/docshare/drive/internal/services"
	"github.com/spf13/cobra"
)

var fsckCmd = &cobra.Command{
	Use:   "fsck",
	Short: "Check the folder hierarchy",
	Long: `Walks every folder up to the top level and reports folders whose parent
is missing, whose walk loops, or whose parent belongs to another owner.
Exits non-zero when any issue is found.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, closeStore, err := openStore()
		if err != nil {
			return err
		}
		defer closeStore()

		report, err := services.CheckHierarchy(cmd.Context(), store)
		if err != nil {
			return fmt.Errorf("checking hierarchy: %w", err)
		}

		out := cmd.OutOrStdout()
		if flagJSON {
			writeJSON(out, report)
		} else {
			issueTable(out, report)
		}
		if !report.OK() {
			return fmt.Errorf("found %d hierarchy issue(s)", len(report.Issues))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(fsckCmd)
}
