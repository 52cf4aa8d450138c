package models

import (
	"time"

	"github.com/google/uuid"
)

type Folder struct {
	BaseModel
	Name      string     `json:"name" gorm:"type:varchar(255);not null"`
	OwnerID   uuid.UUID  `json:"ownerID" gorm:"type:uuid;not null;index"`
	ParentID  *uuid.UUID `json:"parentID" gorm:"type:uuid;index"`
	IsDeleted bool       `json:"isDeleted" gorm:"not null;default:false;index"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

func (Folder) TableName() string {
	return "folders"
}

func (f *Folder) Ref() ResourceRef {
	return ResourceRef{Type: ResourceFolder, ID: f.ID}
}
