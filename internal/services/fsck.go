package services

import (
	"context"
	"fmt"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/google/uuid"
)

const (
	IssueOrphan        = "orphan"
	IssueCycle         = "cycle"
	IssueOwnerMismatch = "owner_mismatch"
)

type HierarchyIssue struct {
	FolderID uuid.UUID `json:"folderID"`
	Kind     string    `json:"kind"`
	Detail   string    `json:"detail"`
}

type HierarchyReport struct {
	Folders int              `json:"folders"`
	Issues  []HierarchyIssue `json:"issues"`
}

func (r *HierarchyReport) OK() bool {
	return len(r.Issues) == 0
}

// CheckHierarchy verifies that every folder's parent walk reaches the top
// level, that parents exist, and that a folder never sits under another
// owner's folder. It reads the whole folder table and is meant for offline
// checks, not request paths.
func CheckHierarchy(ctx context.Context, store repository.Store) (*HierarchyReport, error) {
	folders, err := store.AllFolders(ctx)
	if err != nil {
		return nil, storeErr(err)
	}

	byID := make(map[uuid.UUID]*models.Folder, len(folders))
	for i := range folders {
		byID[folders[i].ID] = &folders[i]
	}

	report := &HierarchyReport{Folders: len(folders)}
	// Folders already known to reach the top level.
	rooted := make(map[uuid.UUID]bool, len(folders))

	for i := range folders {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		folder := &folders[i]

		if folder.ParentID != nil {
			parent, ok := byID[*folder.ParentID]
			switch {
			case !ok:
				report.Issues = append(report.Issues, HierarchyIssue{
					FolderID: folder.ID,
					Kind:     IssueOrphan,
					Detail:   fmt.Sprintf("parent %s does not exist", *folder.ParentID),
				})
				continue
			case parent.OwnerID != folder.OwnerID:
				report.Issues = append(report.Issues, HierarchyIssue{
					FolderID: folder.ID,
					Kind:     IssueOwnerMismatch,
					Detail:   fmt.Sprintf("owner %s differs from parent owner %s", folder.OwnerID, parent.OwnerID),
				})
			}
		}

		if issue := walkToRoot(folder, byID, rooted); issue != nil {
			report.Issues = append(report.Issues, *issue)
		}
	}
	return report, nil
}

func walkToRoot(start *models.Folder, byID map[uuid.UUID]*models.Folder, rooted map[uuid.UUID]bool) *HierarchyIssue {
	path := []uuid.UUID{}
	seen := map[uuid.UUID]bool{}
	current := start
	for current != nil {
		if rooted[current.ID] {
			break
		}
		if seen[current.ID] {
			return &HierarchyIssue{
				FolderID: start.ID,
				Kind:     IssueCycle,
				Detail:   fmt.Sprintf("parent walk revisits %s", current.ID),
			}
		}
		seen[current.ID] = true
		path = append(path, current.ID)
		if current.ParentID == nil {
			break
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			// Reported as an orphan on the folder that owns the dangling link.
			return nil
		}
		current = parent
	}
	for _, id := range path {
		rooted[id] = true
	}
	return nil
}
