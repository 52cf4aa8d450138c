package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestBaseModel_BeforeCreate(t *testing.T) {
	t.Run("generates UUID if not set", func(t *testing.T) {
		model := &BaseModel{}
		if err := model.BeforeCreate(nil); err != nil {
			t.Fatalf("BeforeCreate returned error: %v", err)
		}
		if model.ID == uuid.Nil {
			t.Error("expected ID to be generated, got nil UUID")
		}
	})

	t.Run("preserves existing UUID", func(t *testing.T) {
		existingID := uuid.New()
		model := &BaseModel{ID: existingID}
		if err := model.BeforeCreate(nil); err != nil {
			t.Fatalf("BeforeCreate returned error: %v", err)
		}
		if model.ID != existingID {
			t.Errorf("expected ID to remain %s, got %s", existingID, model.ID)
		}
	})
}

func TestFileVersion_BeforeCreate(t *testing.T) {
	v := &FileVersion{}
	if err := v.BeforeCreate(nil); err != nil {
		t.Fatalf("BeforeCreate returned error: %v", err)
	}
	if v.ID == uuid.Nil || v.CreatedAt.IsZero() {
		t.Errorf("expected ID and CreatedAt to be set, got %+v", v)
	}
}

func TestRole_Permits(t *testing.T) {
	tests := []struct {
		role   Role
		action Action
		want   bool
	}{
		{RoleNone, ActionRead, false},
		{RoleViewer, ActionRead, true},
		{RoleViewer, ActionRename, false},
		{RoleEditor, ActionCreate, true},
		{RoleEditor, ActionMove, true},
		{RoleEditor, ActionDelete, false},
		{RoleEditor, ActionShare, false},
		{RoleOwner, ActionPurge, true},
		{RoleOwner, ActionRevert, true},
		{Role("admin"), ActionRead, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.role)+"/"+string(tt.action), func(t *testing.T) {
			if got := tt.role.Permits(tt.action); got != tt.want {
				t.Errorf("%s.Permits(%s) = %v, want %v", tt.role, tt.action, got, tt.want)
			}
		})
	}
}

func TestMaxRole(t *testing.T) {
	tests := []struct {
		a, b Role
		want Role
	}{
		{RoleNone, RoleViewer, RoleViewer},
		{RoleEditor, RoleViewer, RoleEditor},
		{RoleOwner, RoleEditor, RoleOwner},
		{RoleNone, RoleNone, RoleNone},
	}
	for _, tt := range tests {
		if got := MaxRole(tt.a, tt.b); got != tt.want {
			t.Errorf("MaxRole(%s, %s) = %s, want %s", tt.a, tt.b, got, tt.want)
		}
		if !MaxRole(tt.a, tt.b).AtLeast(tt.a) || !MaxRole(tt.a, tt.b).AtLeast(tt.b) {
			t.Errorf("MaxRole(%s, %s) is weaker than an input", tt.a, tt.b)
		}
	}
}

func TestParseShareRole(t *testing.T) {
	for _, valid := range []string{"viewer", "editor"} {
		if role, err := ParseShareRole(valid); err != nil || string(role) != valid {
			t.Errorf("ParseShareRole(%q) = %q, %v", valid, role, err)
		}
	}
	for _, invalid := range []string{"owner", "none", "", "Viewer"} {
		if _, err := ParseShareRole(invalid); err == nil {
			t.Errorf("ParseShareRole(%q) should fail", invalid)
		}
	}
}

func TestParseResourceType(t *testing.T) {
	if rt, err := ParseResourceType("file"); err != nil || rt != ResourceFile {
		t.Errorf("unexpected result %q, %v", rt, err)
	}
	if rt, err := ParseResourceType("folder"); err != nil || rt != ResourceFolder {
		t.Errorf("unexpected result %q, %v", rt, err)
	}
	if _, err := ParseResourceType("link"); err == nil {
		t.Error("expected error for unknown type")
	}
}

func TestResource_Accessors(t *testing.T) {
	parent := uuid.New()
	deletedAt := time.Now()
	file := &File{BaseModel: BaseModel{ID: uuid.New()}, Name: "a.txt", OwnerID: uuid.New(), FolderID: &parent, IsDeleted: true, DeletedAt: &deletedAt}
	folder := &Folder{BaseModel: BaseModel{ID: uuid.New()}, Name: "docs", OwnerID: uuid.New()}

	fr := FileResource(file)
	if fr.ID() != file.ID || fr.Name() != "a.txt" || fr.OwnerID() != file.OwnerID || *fr.ParentID() != parent || !fr.IsDeleted() || fr.DeletedAt() != &deletedAt {
		t.Errorf("file accessors mismatch: %+v", fr)
	}
	if fr.Ref() != file.Ref() {
		t.Errorf("expected ref %s, got %s", file.Ref(), fr.Ref())
	}

	dr := FolderResource(folder)
	if dr.ID() != folder.ID || dr.Name() != "docs" || dr.ParentID() != nil || dr.IsDeleted() || dr.DeletedAt() != nil {
		t.Errorf("folder accessors mismatch: %+v", dr)
	}
	if got := dr.Ref().String(); got != "folder:"+folder.ID.String() {
		t.Errorf("unexpected ref string %s", got)
	}
}

func TestLinkShare(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Minute)
	future := now.Add(time.Hour)
	empty := ""
	hash := "$2a$10$abc"

	tests := []struct {
		name        string
		link        LinkShare
		wantExpired bool
		wantPass    bool
	}{
		{"no expiry no password", LinkShare{}, false, false},
		{"expired", LinkShare{ExpiresAt: &past}, true, false},
		{"future expiry", LinkShare{ExpiresAt: &future}, false, false},
		{"empty password hash", LinkShare{PasswordHash: &empty}, false, false},
		{"password", LinkShare{PasswordHash: &hash}, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.link.IsExpired(now); got != tt.wantExpired {
				t.Errorf("IsExpired() = %v, want %v", got, tt.wantExpired)
			}
			if got := tt.link.HasPassword(); got != tt.wantPass {
				t.Errorf("HasPassword() = %v, want %v", got, tt.wantPass)
			}
		})
	}
}

func TestFileVersion_SameContent(t *testing.T) {
	sum := "abc"
	other := "def"
	base := FileVersion{StorageKey: "k", SizeBytes: 10, Checksum: &sum}

	tests := []struct {
		name  string
		other FileVersion
		want  bool
	}{
		{"identical", FileVersion{StorageKey: "k", SizeBytes: 10, Checksum: &sum}, true},
		{"different key", FileVersion{StorageKey: "k2", SizeBytes: 10, Checksum: &sum}, false},
		{"different size", FileVersion{StorageKey: "k", SizeBytes: 11, Checksum: &sum}, false},
		{"different checksum", FileVersion{StorageKey: "k", SizeBytes: 10, Checksum: &other}, false},
		{"missing checksum", FileVersion{StorageKey: "k", SizeBytes: 10}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := base.SameContent(&tt.other); got != tt.want {
				t.Errorf("SameContent() = %v, want %v", got, tt.want)
			}
		})
	}

	a := FileVersion{StorageKey: "k"}
	b := FileVersion{StorageKey: "k"}
	if !a.SameContent(&b) {
		t.Error("versions without checksums should match on key and size")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail() = %q", got)
	}
}

func TestTableNames(t *testing.T) {
	tests := map[string]string{
		"files":         File{}.TableName(),
		"folders":       Folder{}.TableName(),
		"file_versions": FileVersion{}.TableName(),
		"shares":        Share{}.TableName(),
		"link_shares":   LinkShare{}.TableName(),
		"stars":         Star{}.TableName(),
	}
	for want, got := range tests {
		if got != want {
			t.Errorf("expected table name %q, got %q", want, got)
		}
	}
}
