package utils

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path"
	"regexp"
	"strings"

	"github.com/google/uuid"
)

var (
	nonSlugChars    = regexp.MustCompile(`[^a-z0-9]+`)
	invalidFileName = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	repeatedDots    = regexp.MustCompile(`\.+`)
)

// SecureToken returns n random bytes from crypto/rand, hex encoded.
func SecureToken(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

func SanitizeFilename(name string) string {
	name = invalidFileName.ReplaceAllString(name, "")
	name = repeatedDots.ReplaceAllString(name, ".")
	return strings.TrimSpace(name)
}

func FileExtension(name string) string {
	ext := path.Ext(name)
	if ext == "" || ext == name {
		return ""
	}
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

func Slug(name string) string {
	if ext := path.Ext(name); ext != "" && ext != name {
		name = strings.TrimSuffix(name, ext)
	}
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(name), "-")
	slug = strings.Trim(slug, "-")
	if len(slug) > 50 {
		slug = slug[:50]
	}
	return slug
}

// StorageKey is the object key for a file's uploaded content:
// <owner>/<folders/<folder>|root>/<file>-<slug>[.<ext>].
func StorageKey(ownerID uuid.UUID, folderID *uuid.UUID, fileID uuid.UUID, name string) string {
	folderPath := "root"
	if folderID != nil {
		folderPath = "folders/" + folderID.String()
	}
	key := fmt.Sprintf("%s/%s/%s-%s", ownerID, folderPath, fileID, Slug(name))
	if ext := FileExtension(name); ext != "" {
		key += "." + ext
	}
	return key
}
