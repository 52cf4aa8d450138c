package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Activity is append-only. It does not use BaseModel because rows are never
// updated.
type Activity struct {
	ID           uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	ActorID      uuid.UUID              `json:"actorID" gorm:"type:uuid;not null;index"`
	Action       string                 `json:"action" gorm:"type:varchar(50);not null;index"`
	ResourceType ResourceType           `json:"resourceType" gorm:"type:varchar(10);not null;index:idx_activities_resource,priority:1"`
	ResourceID   uuid.UUID              `json:"resourceID" gorm:"type:uuid;not null;index:idx_activities_resource,priority:2"`
	ResourceName string                 `json:"resourceName" gorm:"type:varchar(255)"`
	Context      map[string]interface{} `json:"context,omitempty" gorm:"type:jsonb;serializer:json"`
	CreatedAt    time.Time              `json:"createdAt" gorm:"not null;index"`
}

func (a *Activity) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	return nil
}

func (Activity) TableName() string {
	return "activities"
}
