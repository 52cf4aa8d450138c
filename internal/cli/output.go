package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/docshare/drive/internal/services"
)

func writeJSON(w io.Writer, v interface{}) {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

func trashTable(out io.Writer, items []services.TrashItem) {
	if len(items) == 0 {
		fmt.Fprintln(out, "Trash is empty.")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tTYPE\tSIZE\tDELETED\tDAYS LEFT")
	for _, item := range items {
		name := item.Name
		size := "-"
		if item.Type == "folder" {
			name += "/"
		} else {
			size = FormatSize(item.SizeBytes)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", name, item.Type, size, item.DeletedAt.Format("2006-01-02 15:04"), item.DaysUntilDeletion)
	}
	w.Flush()
}

func issueTable(out io.Writer, report *services.HierarchyReport) {
	if report.OK() {
		fmt.Fprintf(out, "Checked %d folders, no issues found.\n", report.Folders)
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "FOLDER\tISSUE\tDETAIL")
	for _, issue := range report.Issues {
		fmt.Fprintf(w, "%s\t%s\t%s\n", issue.FolderID, issue.Kind, issue.Detail)
	}
	w.Flush()
	fmt.Fprintf(out, "Checked %d folders, %d issue(s).\n", report.Folders, len(report.Issues))
}

// FormatSize converts bytes to a human-readable string.
func FormatSize(b int64) string {
	const unit = 1024
	if b < unit {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(b)/float64(div), "KMGTPE"[exp])
}
