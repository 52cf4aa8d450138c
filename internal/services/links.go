package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/docshare/drive/internal/repository"
	"github.com/docshare/drive/pkg/utils"
	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// linkTokenBytes gives 256 bits of entropy per token.
	linkTokenBytes = 32
	// bcrypt ignores input past 72 bytes.
	maxLinkPasswordBytes = 72
	downloadCacheSize    = 4096
)

var linkResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "drive_link_resolutions_total",
	Help: "Link share resolutions by outcome.",
}, []string{"outcome"})

type LinkService struct {
	Store       repository.Store
	Access      *AccessService
	Objects     ObjectStore
	Audit       Auditor
	DownloadTTL time.Duration
	Now         func() time.Time

	downloads *expirable.LRU[string, Download]
}

func NewLinkService(store repository.Store, access *AccessService, objects ObjectStore, auditor Auditor, downloadTTL time.Duration) *LinkService {
	if downloadTTL <= 0 {
		downloadTTL = time.Hour
	}
	return &LinkService{
		Store:       store,
		Access:      access,
		Objects:     objects,
		Audit:       auditor,
		DownloadTTL: downloadTTL,
		Now:         time.Now,
		// Cached URLs are handed out for at most half their lifetime so a
		// client always gets a usable window.
		downloads: expirable.NewLRU[string, Download](downloadCacheSize, nil, downloadTTL/2),
	}
}

type CreateLinkRequest struct {
	ExpiresAt *time.Time
	Password  string
}

type Download struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// LinkResolution is the outcome of opening a link. When PasswordRequired is
// set nothing else is populated and the caller should prompt for a password.
type LinkResolution struct {
	PasswordRequired bool                `json:"requiresPassword"`
	ResourceType     models.ResourceType `json:"resourceType,omitempty"`
	File             *models.File        `json:"file,omitempty"`
	Folder           *models.Folder      `json:"folder,omitempty"`
	Download         *Download           `json:"download,omitempty"`
	Folders          []models.Folder     `json:"folders,omitempty"`
	Files            []models.File       `json:"files,omitempty"`
}

func (s *LinkService) CreateLink(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef, req CreateLinkRequest) (*models.LinkShare, error) {
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionShare)
	if err != nil {
		return nil, err
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(s.Now()) {
		return nil, validationErr("expiry must be in the future")
	}
	if len(req.Password) > maxLinkPasswordBytes {
		return nil, validationErr("password is longer than %d bytes", maxLinkPasswordBytes)
	}

	token, err := utils.SecureToken(linkTokenBytes)
	if err != nil {
		return nil, fmt.Errorf("generating link token: %w", err)
	}
	link := &models.LinkShare{
		ResourceType: ref.Type,
		ResourceID:   ref.ID,
		Token:        token,
		ExpiresAt:    req.ExpiresAt,
		CreatedByID:  actorID,
	}
	if req.Password != "" {
		hash, err := utils.HashPassword(req.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing link password: %w", err)
		}
		link.PasswordHash = &hash
	}

	if err := s.Store.CreateLink(ctx, link); err != nil {
		return nil, storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditLinkCreate, res, map[string]interface{}{
		"link_id":      link.ID.String(),
		"has_password": link.HasPassword(),
	}))
	return link, nil
}

// ResolveLink opens a link. An expired link fails even with the right
// password. Files yield a short-lived download URL; folders yield their
// immediate live children only.
func (s *LinkService) ResolveLink(ctx context.Context, token string, password *string) (*LinkResolution, error) {
	link, err := s.Store.GetLinkByToken(ctx, token)
	if errors.Is(err, repository.ErrNotFound) {
		linkResolutions.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr(err)
	}

	if link.IsExpired(s.Now()) {
		linkResolutions.WithLabelValues("expired").Inc()
		return nil, ErrExpired
	}
	if link.HasPassword() {
		if password == nil {
			linkResolutions.WithLabelValues("password_required").Inc()
			return &LinkResolution{PasswordRequired: true}, nil
		}
		if !utils.CheckPassword(*password, *link.PasswordHash) {
			linkResolutions.WithLabelValues("invalid_password").Inc()
			return nil, ErrInvalidPassword
		}
	}

	res, err := loadResource(ctx, s.Store, models.ResourceRef{Type: link.ResourceType, ID: link.ResourceID})
	if err != nil {
		return nil, err
	}
	if res.IsDeleted() {
		linkResolutions.WithLabelValues("not_found").Inc()
		return nil, ErrNotFound
	}

	out := &LinkResolution{ResourceType: res.Type}
	switch res.Type {
	case models.ResourceFile:
		if res.File.UploadStatus != models.UploadStatusReady {
			return nil, ErrNotFound
		}
		download, err := s.download(ctx, res.File.StorageKey)
		if err != nil {
			return nil, err
		}
		out.File = res.File
		out.Download = &download
	case models.ResourceFolder:
		scope := repository.ChildScope{ParentID: &res.Folder.ID}
		out.Folder = res.Folder
		if out.Folders, err = s.Store.ListChildFolders(ctx, scope); err != nil {
			return nil, storeErr(err)
		}
		if out.Files, err = s.Store.ListChildFiles(ctx, scope, models.UploadStatusReady); err != nil {
			return nil, storeErr(err)
		}
	default:
		return nil, fmt.Errorf("%w: link %s points at resource type %q", ErrIntegrity, link.ID, res.Type)
	}

	linkResolutions.WithLabelValues("resolved").Inc()
	s.Audit.Record(auditEntry(link.CreatedByID, AuditLinkAccess, res, map[string]interface{}{
		"link_id": link.ID.String(),
	}))
	return out, nil
}

func (s *LinkService) download(ctx context.Context, key string) (Download, error) {
	if cached, ok := s.downloads.Get(key); ok {
		return cached, nil
	}
	url, err := s.Objects.PresignedGetURL(ctx, key, s.DownloadTTL)
	if err != nil {
		return Download{}, fmt.Errorf("%w: presigning download: %v", ErrTransient, err)
	}
	d := Download{URL: url, ExpiresAt: s.Now().UTC().Add(s.DownloadTTL)}
	s.downloads.Add(key, d)
	return d, nil
}

func (s *LinkService) ListLinks(ctx context.Context, actorID uuid.UUID, ref models.ResourceRef) ([]models.LinkShare, error) {
	if _, err := s.Access.Authorize(ctx, actorID, ref, models.ActionShare); err != nil {
		return nil, err
	}
	links, err := s.Store.ListLinks(ctx, ref)
	if err != nil {
		return nil, storeErr(err)
	}
	return links, nil
}

func (s *LinkService) DeleteLink(ctx context.Context, actorID, linkID uuid.UUID) error {
	link, err := s.Store.GetLink(ctx, linkID)
	if err != nil {
		return storeErr(err)
	}
	ref := models.ResourceRef{Type: link.ResourceType, ID: link.ResourceID}
	res, err := s.Access.Authorize(ctx, actorID, ref, models.ActionShare, IncludeTrashed())
	if err != nil {
		return err
	}
	if err := s.Store.DeleteLink(ctx, linkID); err != nil {
		return storeErr(err)
	}

	s.Audit.Record(auditEntry(actorID, AuditLinkDelete, res, map[string]interface{}{"link_id": linkID.String()}))
	return nil
}
