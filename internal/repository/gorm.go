package repository

import (
	"context"
	"strings"
	"time"

	"github.com/docshare/drive/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{DB: db}
}

func (s *GormStore) db(ctx context.Context) *gorm.DB {
	return s.DB.WithContext(ctx)
}

func (s *GormStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	err := s.db(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&GormStore{DB: tx})
	})
	return translate(err)
}

func (s *GormStore) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db(ctx).First(&user, "email = ?", models.NormalizeEmail(email)).Error; err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	user.Email = models.NormalizeEmail(user.Email)
	return translate(s.db(ctx).Create(user).Error)
}

func (s *GormStore) GetFolder(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	if err := s.db(ctx).First(&folder, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &folder, nil
}

// GetFolderForUpdate takes a row lock on Postgres. SQLite has no row locks;
// its transactions are already serialized.
func (s *GormStore) GetFolderForUpdate(ctx context.Context, id uuid.UUID) (*models.Folder, error) {
	var folder models.Folder
	err := s.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&folder, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &folder, nil
}

func (s *GormStore) CreateFolder(ctx context.Context, folder *models.Folder) error {
	return translate(s.db(ctx).Create(folder).Error)
}

func (s *GormStore) UpdateFolder(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := s.db(ctx).Model(&models.Folder{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CountFolders(ctx context.Context) (int64, error) {
	var count int64
	err := s.db(ctx).Model(&models.Folder{}).Count(&count).Error
	return count, translate(err)
}

func (s *GormStore) AllFolders(ctx context.Context) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.db(ctx).Order("created_at ASC").Find(&folders).Error
	return folders, translate(err)
}

func (s *GormStore) FolderNameTaken(ctx context.Context, ownerID uuid.UUID, parentID *uuid.UUID, name string, excludeID uuid.UUID) (bool, error) {
	query := s.db(ctx).Model(&models.Folder{}).
		Where("owner_id = ? AND name = ? AND is_deleted = ?", ownerID, name, false).
		Where("id <> ?", excludeID)
	query = whereParent(query, "parent_id", parentID)

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, translate(err)
	}
	return count > 0, nil
}

func (s *GormStore) ChildFolders(ctx context.Context, parentIDs []uuid.UUID, state DeletionState) ([]models.Folder, error) {
	if len(parentIDs) == 0 {
		return nil, nil
	}
	var folders []models.Folder
	query := whereState(s.db(ctx).Where("parent_id IN ?", parentIDs), state)
	err := query.Find(&folders).Error
	return folders, translate(err)
}

func (s *GormStore) ListChildFolders(ctx context.Context, scope ChildScope) ([]models.Folder, error) {
	var folders []models.Folder
	query := whereScope(s.db(ctx), "parent_id", scope).Where("is_deleted = ?", false)
	err := query.Order("name ASC").Find(&folders).Error
	return folders, translate(err)
}

func (s *GormStore) SetFoldersDeleted(ctx context.Context, ids []uuid.UUID, deletedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db(ctx).Model(&models.Folder{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_deleted": deletedAt != nil,
			"deleted_at": deletedAt,
		}).Error
	return translate(err)
}

func (s *GormStore) DeleteFolders(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(s.db(ctx).Where("id IN ?", ids).Delete(&models.Folder{}).Error)
}

func (s *GormStore) TrashedFolders(ctx context.Context, ownerID uuid.UUID) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.db(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, true).
		Order("deleted_at DESC").
		Find(&folders).Error
	return folders, translate(err)
}

func (s *GormStore) GetFile(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	if err := s.db(ctx).First(&file, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

func (s *GormStore) GetFileForUpdate(ctx context.Context, id uuid.UUID) (*models.File, error) {
	var file models.File
	err := s.db(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&file, "id = ?", id).Error
	if err != nil {
		return nil, translate(err)
	}
	return &file, nil
}

func (s *GormStore) CreateFile(ctx context.Context, file *models.File) error {
	return translate(s.db(ctx).Create(file).Error)
}

func (s *GormStore) UpdateFile(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	res := s.db(ctx).Model(&models.File{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) FilesInFolders(ctx context.Context, folderIDs []uuid.UUID, state DeletionState) ([]models.File, error) {
	if len(folderIDs) == 0 {
		return nil, nil
	}
	var files []models.File
	query := whereState(s.db(ctx).Where("folder_id IN ?", folderIDs), state)
	err := query.Find(&files).Error
	return files, translate(err)
}

func (s *GormStore) ListChildFiles(ctx context.Context, scope ChildScope, status models.UploadStatus) ([]models.File, error) {
	var files []models.File
	query := whereScope(s.db(ctx), "folder_id", scope).
		Where("is_deleted = ? AND upload_status = ?", false, status)
	err := query.Order("name ASC").Find(&files).Error
	return files, translate(err)
}

func (s *GormStore) SetFilesDeleted(ctx context.Context, ids []uuid.UUID, deletedAt *time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	err := s.db(ctx).Model(&models.File{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"is_deleted": deletedAt != nil,
			"deleted_at": deletedAt,
		}).Error
	return translate(err)
}

func (s *GormStore) DeleteFiles(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return translate(s.db(ctx).Where("id IN ?", ids).Delete(&models.File{}).Error)
}

func (s *GormStore) TrashedFiles(ctx context.Context, ownerID uuid.UUID) ([]models.File, error) {
	var files []models.File
	err := s.db(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, true).
		Order("deleted_at DESC").
		Find(&files).Error
	return files, translate(err)
}

func (s *GormStore) GetVersion(ctx context.Context, id uuid.UUID) (*models.FileVersion, error) {
	var version models.FileVersion
	if err := s.db(ctx).First(&version, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &version, nil
}

func (s *GormStore) ListVersions(ctx context.Context, fileID uuid.UUID) ([]models.FileVersion, error) {
	var versions []models.FileVersion
	err := s.db(ctx).
		Where("file_id = ?", fileID).
		Order("version_number DESC").
		Find(&versions).Error
	return versions, translate(err)
}

func (s *GormStore) VersionsForFiles(ctx context.Context, fileIDs []uuid.UUID) ([]models.FileVersion, error) {
	if len(fileIDs) == 0 {
		return nil, nil
	}
	var versions []models.FileVersion
	err := s.db(ctx).Where("file_id IN ?", fileIDs).Find(&versions).Error
	return versions, translate(err)
}

func (s *GormStore) MaxVersionNumber(ctx context.Context, fileID uuid.UUID) (int, error) {
	var max int
	err := s.db(ctx).Model(&models.FileVersion{}).
		Where("file_id = ?", fileID).
		Select("COALESCE(MAX(version_number), 0)").
		Scan(&max).Error
	return max, translate(err)
}

func (s *GormStore) CreateVersion(ctx context.Context, version *models.FileVersion) error {
	return translate(s.db(ctx).Create(version).Error)
}

func (s *GormStore) DeleteVersionsForFiles(ctx context.Context, fileIDs []uuid.UUID) error {
	if len(fileIDs) == 0 {
		return nil
	}
	return translate(s.db(ctx).Where("file_id IN ?", fileIDs).Delete(&models.FileVersion{}).Error)
}

func (s *GormStore) GetShare(ctx context.Context, id uuid.UUID) (*models.Share, error) {
	var share models.Share
	if err := s.db(ctx).First(&share, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &share, nil
}

func (s *GormStore) FindShare(ctx context.Context, ref models.ResourceRef, granteeID uuid.UUID) (*models.Share, error) {
	var share models.Share
	err := s.db(ctx).
		Where("resource_type = ? AND resource_id = ? AND grantee_user_id = ?", ref.Type, ref.ID, granteeID).
		First(&share).Error
	if err != nil {
		return nil, translate(err)
	}
	return &share, nil
}

func (s *GormStore) CreateShare(ctx context.Context, share *models.Share) error {
	return translate(s.db(ctx).Create(share).Error)
}

func (s *GormStore) UpdateShareRole(ctx context.Context, id uuid.UUID, role models.Role) error {
	res := s.db(ctx).Model(&models.Share{}).Where("id = ?", id).Update("role", role)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteShare(ctx context.Context, id uuid.UUID) error {
	res := s.db(ctx).Where("id = ?", id).Delete(&models.Share{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListShares(ctx context.Context, ref models.ResourceRef) ([]models.Share, error) {
	var shares []models.Share
	err := s.db(ctx).
		Where("resource_type = ? AND resource_id = ?", ref.Type, ref.ID).
		Order("created_at ASC").
		Find(&shares).Error
	return shares, translate(err)
}

func (s *GormStore) SharesForGrantee(ctx context.Context, granteeID uuid.UUID) ([]models.Share, error) {
	var shares []models.Share
	err := s.db(ctx).
		Where("grantee_user_id = ?", granteeID).
		Order("created_at DESC").
		Find(&shares).Error
	return shares, translate(err)
}

func (s *GormStore) GetLink(ctx context.Context, id uuid.UUID) (*models.LinkShare, error) {
	var link models.LinkShare
	if err := s.db(ctx).First(&link, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (s *GormStore) GetLinkByToken(ctx context.Context, token string) (*models.LinkShare, error) {
	var link models.LinkShare
	if err := s.db(ctx).First(&link, "token = ?", token).Error; err != nil {
		return nil, translate(err)
	}
	return &link, nil
}

func (s *GormStore) CreateLink(ctx context.Context, link *models.LinkShare) error {
	return translate(s.db(ctx).Create(link).Error)
}

func (s *GormStore) DeleteLink(ctx context.Context, id uuid.UUID) error {
	res := s.db(ctx).Where("id = ?", id).Delete(&models.LinkShare{})
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListLinks(ctx context.Context, ref models.ResourceRef) ([]models.LinkShare, error) {
	var links []models.LinkShare
	err := s.db(ctx).
		Where("resource_type = ? AND resource_id = ?", ref.Type, ref.ID).
		Order("created_at DESC").
		Find(&links).Error
	return links, translate(err)
}

// CreateStar is idempotent.
func (s *GormStore) CreateStar(ctx context.Context, star *models.Star) error {
	if star.CreatedAt.IsZero() {
		star.CreatedAt = time.Now().UTC()
	}
	err := s.db(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(star).Error
	return translate(err)
}

func (s *GormStore) DeleteStar(ctx context.Context, userID uuid.UUID, ref models.ResourceRef) error {
	err := s.db(ctx).
		Where("user_id = ? AND resource_type = ? AND resource_id = ?", userID, ref.Type, ref.ID).
		Delete(&models.Star{}).Error
	return translate(err)
}

func (s *GormStore) ListStars(ctx context.Context, userID uuid.UUID) ([]models.Star, error) {
	var stars []models.Star
	err := s.db(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&stars).Error
	return stars, translate(err)
}

func (s *GormStore) DeleteReferences(ctx context.Context, resourceType models.ResourceType, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	for _, model := range []interface{}{&models.Share{}, &models.LinkShare{}, &models.Star{}} {
		err := s.db(ctx).
			Where("resource_type = ? AND resource_id IN ?", resourceType, ids).
			Delete(model).Error
		if err != nil {
			return translate(err)
		}
	}
	return nil
}

func (s *GormStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return translate(s.db(ctx).Create(activity).Error)
}

func (s *GormStore) ListActivities(ctx context.Context, ref models.ResourceRef, limit int) ([]models.Activity, error) {
	var activities []models.Activity
	query := s.db(ctx).
		Where("resource_type = ? AND resource_id = ?", ref.Type, ref.ID).
		Order("created_at DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	err := query.Find(&activities).Error
	return activities, translate(err)
}

// nameMatch escapes LIKE wildcards with a backslash on both postgres and sqlite.
const nameMatch = `LOWER(name) LIKE ? ESCAPE '\'`

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(term)) + "%"
}

func (s *GormStore) SearchFolders(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]models.Folder, error) {
	var folders []models.Folder
	err := s.db(ctx).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Where(nameMatch, likePattern(term)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&folders).Error
	return folders, translate(err)
}

func (s *GormStore) SearchFiles(ctx context.Context, ownerID uuid.UUID, term string, limit int) ([]models.File, error) {
	var files []models.File
	err := s.db(ctx).
		Where("owner_id = ? AND is_deleted = ? AND upload_status = ?", ownerID, false, models.UploadStatusReady).
		Where(nameMatch, likePattern(term)).
		Order("updated_at DESC").
		Limit(limit).
		Find(&files).Error
	return files, translate(err)
}

func (s *GormStore) RecentFiles(ctx context.Context, ownerID uuid.UUID, limit int) ([]models.File, error) {
	var files []models.File
	err := s.db(ctx).
		Where("owner_id = ? AND is_deleted = ? AND upload_status = ?", ownerID, false, models.UploadStatusReady).
		Order("updated_at DESC").
		Limit(limit).
		Find(&files).Error
	return files, translate(err)
}

func (s *GormStore) UsageTotals(ctx context.Context, ownerID uuid.UUID) (*UsageTotals, error) {
	var totals UsageTotals
	err := s.db(ctx).Model(&models.File{}).
		Select("COALESCE(SUM(size_bytes), 0) AS total_bytes, COUNT(*) AS file_count").
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Scan(&totals).Error
	if err != nil {
		return nil, translate(err)
	}
	err = s.db(ctx).Model(&models.Folder{}).
		Where("owner_id = ? AND is_deleted = ?", ownerID, false).
		Count(&totals.FolderCount).Error
	if err != nil {
		return nil, translate(err)
	}
	return &totals, nil
}

func whereParent(query *gorm.DB, column string, parentID *uuid.UUID) *gorm.DB {
	if parentID == nil {
		return query.Where(column + " IS NULL")
	}
	return query.Where(column+" = ?", *parentID)
}

func whereScope(query *gorm.DB, column string, scope ChildScope) *gorm.DB {
	if scope.ParentID == nil {
		return query.Where(column+" IS NULL AND owner_id = ?", scope.OwnerID)
	}
	return query.Where(column+" = ?", *scope.ParentID)
}

func whereState(query *gorm.DB, state DeletionState) *gorm.DB {
	switch state {
	case Live:
		return query.Where("is_deleted = ?", false)
	case Trashed:
		return query.Where("is_deleted = ?", true)
	default:
		return query
	}
}

var _ Store = (*GormStore)(nil)
