// Package photo validates and stores incident photos. Validation trusts
// the bytes, not the declared content type: a renamed executable with a
// .jpg extension is rejected on its sniffed type.
package photo

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"

	dErrors "streetwatch/pkg/domain-errors"
)

const (
	// MaxFileSize caps one photo at 5 MiB.
	MaxFileSize = 5 << 20
	// MaxPerIncident caps how many photos one report may carry.
	MaxPerIncident = 5
)

var allowedTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Store writes validated photos to a directory and hands back opaque
// references.
type Store struct {
	dir string
}

func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Save validates one photo and persists it. The returned reference is a
// generated name; the declared filename never reaches the filesystem.
func (s *Store) Save(data []byte, declaredType, declaredName string, existingCount int) (string, error) {
	if existingCount >= MaxPerIncident {
		return "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("at most %d photos per incident", MaxPerIncident))
	}
	if len(data) == 0 {
		return "", dErrors.New(dErrors.CodeValidation, "empty file")
	}
	if len(data) > MaxFileSize {
		return "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("file exceeds %d bytes", MaxFileSize))
	}

	sniffed := mimetype.Detect(data)
	ext, ok := allowedTypes[sniffed.String()]
	if !ok {
		if strings.HasPrefix(declaredType, "image/") {
			// Declared as an image but the bytes say otherwise.
			return "", dErrors.New(dErrors.CodeValidation,
				fmt.Sprintf("content does not match declared type (%s is %s)", declaredName, sniffed.String()))
		}
		return "", dErrors.New(dErrors.CodeValidation,
			fmt.Sprintf("unsupported file type %s", sniffed.String()))
	}

	ref := uuid.NewString() + ext
	if err := os.WriteFile(filepath.Join(s.dir, ref), data, 0o644); err != nil {
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "failed to store photo")
	}
	return ref, nil
}

// Open returns the stored bytes for a reference. References are generated
// names; anything with a path separator is rejected before touching disk.
func (s *Store) Open(ref string) ([]byte, error) {
	if ref != filepath.Base(ref) || ref == "." || ref == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "invalid photo reference")
	}
	data, err := os.ReadFile(filepath.Join(s.dir, ref))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, dErrors.New(dErrors.CodeNotFound, "photo not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read photo")
	}
	return data, nil
}
