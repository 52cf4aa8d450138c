package services

import (
	"context"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/google/uuid"
)

const (
	minSearchRunes     = 2
	defaultSearchLimit = 50
	defaultRecentLimit = 20
	maxBrowseLimit     = 100
)

// BrowseService answers the owner-scoped views of a drive: name search,
// recently updated files and storage usage.
type BrowseService struct {
	Store      repository.Store
	QuotaBytes int64
}

func NewBrowseService(store repository.Store, quotaBytes int64) *BrowseService {
	return &BrowseService{Store: store, QuotaBytes: quotaBytes}
}

// ResourceSummary is a flattened file or folder as shown in search results
// and the recent list.
type ResourceSummary struct {
	Type      models.ResourceType `json:"type"`
	ID        uuid.UUID           `json:"id"`
	Name      string              `json:"name"`
	MimeType  string              `json:"mimeType,omitempty"`
	SizeBytes int64               `json:"sizeBytes,omitempty"`
	ParentID  *uuid.UUID          `json:"parentID"`
	IsStarred bool                `json:"isStarred"`
	CreatedAt time.Time           `json:"createdAt"`
	UpdatedAt time.Time           `json:"updatedAt"`
}

type SearchQuery struct {
	Term string
	// Type is "file", "folder", or empty for both.
	Type        string
	StarredOnly bool
	Limit       int
}

type StorageUsage struct {
	TotalBytes   int64   `json:"totalBytes"`
	FileCount    int64   `json:"fileCount"`
	FolderCount  int64   `json:"folderCount"`
	QuotaBytes   int64   `json:"quotaBytes"`
	UsagePercent float64 `json:"usagePercent"`
}

// Search matches a substring of the name over the actor's live folders and
// ready files. Terms shorter than two characters return nothing.
func (s *BrowseService) Search(ctx context.Context, actorID uuid.UUID, q SearchQuery) ([]ResourceSummary, error) {
	var wantFiles, wantFolders bool
	switch q.Type {
	case "", "all":
		wantFiles, wantFolders = true, true
	case string(models.ResourceFile):
		wantFiles = true
	case string(models.ResourceFolder):
		wantFolders = true
	default:
		return nil, validationErr("unknown resource type %q", q.Type)
	}

	results := []ResourceSummary{}
	term := strings.TrimSpace(q.Term)
	if utf8.RuneCountInString(term) < minSearchRunes {
		return results, nil
	}
	limit := clampLimit(q.Limit, defaultSearchLimit)

	if wantFiles {
		files, err := s.Store.SearchFiles(ctx, actorID, term, limit)
		if err != nil {
			return nil, storeErr(err)
		}
		for i := range files {
			results = append(results, fileSummary(&files[i]))
		}
	}
	if wantFolders {
		folders, err := s.Store.SearchFolders(ctx, actorID, term, limit)
		if err != nil {
			return nil, storeErr(err)
		}
		for i := range folders {
			results = append(results, folderSummary(&folders[i]))
		}
	}

	if err := s.markStarred(ctx, actorID, results); err != nil {
		return nil, err
	}
	if !q.StarredOnly {
		return results, nil
	}
	starred := results[:0]
	for _, r := range results {
		if r.IsStarred {
			starred = append(starred, r)
		}
	}
	return starred, nil
}

// RecentFiles lists the actor's ready files, most recently updated first.
func (s *BrowseService) RecentFiles(ctx context.Context, actorID uuid.UUID, limit int) ([]ResourceSummary, error) {
	files, err := s.Store.RecentFiles(ctx, actorID, clampLimit(limit, defaultRecentLimit))
	if err != nil {
		return nil, storeErr(err)
	}
	results := make([]ResourceSummary, 0, len(files))
	for i := range files {
		results = append(results, fileSummary(&files[i]))
	}
	if err := s.markStarred(ctx, actorID, results); err != nil {
		return nil, err
	}
	return results, nil
}

// StorageUsage totals the actor's live files and folders. Files still
// uploading count with their declared size.
func (s *BrowseService) StorageUsage(ctx context.Context, actorID uuid.UUID) (*StorageUsage, error) {
	totals, err := s.Store.UsageTotals(ctx, actorID)
	if err != nil {
		return nil, storeErr(err)
	}
	usage := &StorageUsage{
		TotalBytes:  totals.TotalBytes,
		FileCount:   totals.FileCount,
		FolderCount: totals.FolderCount,
		QuotaBytes:  s.QuotaBytes,
	}
	if s.QuotaBytes > 0 {
		usage.UsagePercent = math.Round(float64(totals.TotalBytes)/float64(s.QuotaBytes)*10000) / 100
	}
	return usage, nil
}

func (s *BrowseService) markStarred(ctx context.Context, actorID uuid.UUID, results []ResourceSummary) error {
	if len(results) == 0 {
		return nil
	}
	stars, err := s.Store.ListStars(ctx, actorID)
	if err != nil {
		return storeErr(err)
	}
	starred := make(map[models.ResourceRef]bool, len(stars))
	for _, star := range stars {
		starred[models.ResourceRef{Type: star.ResourceType, ID: star.ResourceID}] = true
	}
	for i := range results {
		results[i].IsStarred = starred[models.ResourceRef{Type: results[i].Type, ID: results[i].ID}]
	}
	return nil
}

func clampLimit(limit, fallback int) int {
	switch {
	case limit <= 0:
		return fallback
	case limit > maxBrowseLimit:
		return maxBrowseLimit
	default:
		return limit
	}
}

func fileSummary(f *models.File) ResourceSummary {
	return ResourceSummary{
		Type:      models.ResourceFile,
		ID:        f.ID,
		Name:      f.Name,
		MimeType:  f.MimeType,
		SizeBytes: f.SizeBytes,
		ParentID:  f.FolderID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}

func folderSummary(f *models.Folder) ResourceSummary {
	return ResourceSummary{
		Type:      models.ResourceFolder,
		ID:        f.ID,
		Name:      f.Name,
		ParentID:  f.ParentID,
		CreatedAt: f.CreatedAt,
		UpdatedAt: f.UpdatedAt,
	}
}
