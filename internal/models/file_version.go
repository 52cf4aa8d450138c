package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FileVersion rows are immutable. They are only ever inserted, and removed
// together with their file when it is purged.
type FileVersion struct {
	ID            uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	FileID        uuid.UUID `json:"fileID" gorm:"type:uuid;not null;uniqueIndex:idx_file_versions_number,priority:1"`
	VersionNumber int       `json:"versionNumber" gorm:"not null;uniqueIndex:idx_file_versions_number,priority:2"`
	StorageKey    string    `json:"-" gorm:"type:text;not null"`
	SizeBytes     int64     `json:"sizeBytes" gorm:"not null;default:0"`
	Checksum      *string   `json:"checksum,omitempty" gorm:"type:varchar(128)"`
	CreatedAt     time.Time `json:"createdAt" gorm:"not null"`
}

func (v *FileVersion) BeforeCreate(_ *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.CreatedAt.IsZero() {
		v.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (FileVersion) TableName() string {
	return "file_versions"
}

// SameContent reports whether two versions point at identical bytes.
func (v *FileVersion) SameContent(other *FileVersion) bool {
	if v.StorageKey != other.StorageKey || v.SizeBytes != other.SizeBytes {
		return false
	}
	if v.Checksum == nil || other.Checksum == nil {
		return v.Checksum == nil && other.Checksum == nil
	}
	return *v.Checksum == *other.Checksum
}
