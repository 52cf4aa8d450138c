package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type ResourceType string

const (
	ResourceFile   ResourceType = "file"
	ResourceFolder ResourceType = "folder"
)

func ParseResourceType(value string) (ResourceType, error) {
	switch ResourceType(value) {
	case ResourceFile:
		return ResourceFile, nil
	case ResourceFolder:
		return ResourceFolder, nil
	default:
		return "", fmt.Errorf("unknown resource type %q", value)
	}
}

type ResourceRef struct {
	Type ResourceType `json:"resourceType"`
	ID   uuid.UUID    `json:"resourceID"`
}

func (r ResourceRef) String() string {
	return string(r.Type) + ":" + r.ID.String()
}

// Resource is a File or a Folder. Exactly one of the two pointers is set,
// matching Type.
type Resource struct {
	Type   ResourceType `json:"type"`
	File   *File        `json:"file,omitempty"`
	Folder *Folder      `json:"folder,omitempty"`
}

func FileResource(f *File) *Resource {
	return &Resource{Type: ResourceFile, File: f}
}

func FolderResource(f *Folder) *Resource {
	return &Resource{Type: ResourceFolder, Folder: f}
}

func (r *Resource) Ref() ResourceRef {
	return ResourceRef{Type: r.Type, ID: r.ID()}
}

func (r *Resource) ID() uuid.UUID {
	switch r.Type {
	case ResourceFile:
		return r.File.ID
	case ResourceFolder:
		return r.Folder.ID
	}
	return uuid.Nil
}

func (r *Resource) Name() string {
	switch r.Type {
	case ResourceFile:
		return r.File.Name
	case ResourceFolder:
		return r.Folder.Name
	}
	return ""
}

func (r *Resource) OwnerID() uuid.UUID {
	switch r.Type {
	case ResourceFile:
		return r.File.OwnerID
	case ResourceFolder:
		return r.Folder.OwnerID
	}
	return uuid.Nil
}

// ParentID is the containing folder, nil for top-level resources.
func (r *Resource) ParentID() *uuid.UUID {
	switch r.Type {
	case ResourceFile:
		return r.File.FolderID
	case ResourceFolder:
		return r.Folder.ParentID
	}
	return nil
}

func (r *Resource) IsDeleted() bool {
	switch r.Type {
	case ResourceFile:
		return r.File.IsDeleted
	case ResourceFolder:
		return r.Folder.IsDeleted
	}
	return false
}

func (r *Resource) DeletedAt() *time.Time {
	switch r.Type {
	case ResourceFile:
		return r.File.DeletedAt
	case ResourceFolder:
		return r.Folder.DeletedAt
	}
	return nil
}
