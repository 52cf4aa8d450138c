package models

import (
	"time"

	"github.com/google/uuid"
)

// Share grants a single user a viewer or editor role on one resource.
type Share struct {
	BaseModel
	ResourceType  ResourceType `json:"resourceType" gorm:"type:varchar(10);not null;uniqueIndex:idx_shares_grant,priority:1"`
	ResourceID    uuid.UUID    `json:"resourceID" gorm:"type:uuid;not null;uniqueIndex:idx_shares_grant,priority:2"`
	GranteeUserID uuid.UUID    `json:"granteeUserID" gorm:"type:uuid;not null;uniqueIndex:idx_shares_grant,priority:3;index"`
	Role          Role         `json:"role" gorm:"type:varchar(20);not null;default:'viewer'"`
	CreatedByID   uuid.UUID    `json:"createdByID" gorm:"type:uuid;not null"`
}

func (Share) TableName() string {
	return "shares"
}

func (s *Share) Ref() ResourceRef {
	return ResourceRef{Type: s.ResourceType, ID: s.ResourceID}
}

// LinkShare is a public capability: whoever holds Token (and the password,
// when one is set) can read the resource without an account.
type LinkShare struct {
	BaseModel
	ResourceType ResourceType `json:"resourceType" gorm:"type:varchar(10);not null;index:idx_link_shares_resource,priority:1"`
	ResourceID   uuid.UUID    `json:"resourceID" gorm:"type:uuid;not null;index:idx_link_shares_resource,priority:2"`
	Token        string       `json:"token" gorm:"type:varchar(128);uniqueIndex;not null"`
	PasswordHash *string      `json:"-" gorm:"type:text"`
	ExpiresAt    *time.Time   `json:"expiresAt,omitempty"`
	CreatedByID  uuid.UUID    `json:"createdByID" gorm:"type:uuid;not null"`
}

func (LinkShare) TableName() string {
	return "link_shares"
}

func (l *LinkShare) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}

func (l *LinkShare) IsExpired(now time.Time) bool {
	return l.ExpiresAt != nil && l.ExpiresAt.Before(now)
}

type Star struct {
	UserID       uuid.UUID    `json:"userID" gorm:"type:uuid;primaryKey"`
	ResourceType ResourceType `json:"resourceType" gorm:"type:varchar(10);primaryKey"`
	ResourceID   uuid.UUID    `json:"resourceID" gorm:"type:uuid;primaryKey;index"`
	CreatedAt    time.Time    `json:"createdAt" gorm:"not null"`
}

func (Star) TableName() string {
	return "stars"
}
