package models

import (
	"time"

	"github.com/google/uuid"
)

type UploadStatus string

const (
	UploadStatusPending   UploadStatus = "pending"
	UploadStatusUploading UploadStatus = "uploading"
	UploadStatusReady     UploadStatus = "ready"
)

type File struct {
	BaseModel
	Name             string       `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID          uuid.UUID    `json:"ownerID" gorm:"type:uuid;not null;index"`
	FolderID         *uuid.UUID   `json:"folderID" gorm:"type:uuid;index"`
	MimeType         string       `json:"mimeType" gorm:"type:varchar(255);not null"`
	SizeBytes        int64        `json:"sizeBytes" gorm:"not null;default:0"`
	StorageKey       string       `json:"-" gorm:"type:text;not null"`
	Checksum         *string      `json:"checksum,omitempty" gorm:"type:varchar(128)"`
	UploadStatus     UploadStatus `json:"uploadStatus" gorm:"type:varchar(20);not null;default:'pending';index"`
	IsDeleted        bool         `json:"isDeleted" gorm:"not null;default:false;index"`
	DeletedAt        *time.Time   `json:"deletedAt,omitempty"`
	CurrentVersionID *uuid.UUID   `json:"currentVersionID,omitempty" gorm:"type:uuid"`
}

func (File) TableName() string {
	return "files"
}

func (f *File) Ref() ResourceRef {
	return ResourceRef{Type: ResourceFile, ID: f.ID}
}
