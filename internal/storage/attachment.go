package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"nfa-backend/internal/model"
)

// AttachmentStore persists uploaded request attachments and returns locators
// for them. Implementations are best-effort local I/O performed inline during
// a mutating request; a failed save must abort the whole operation.
type AttachmentStore interface {
	Save(content []byte, requestID, originalName string) (model.Attachment, error)
	Remove(fileURL string) error
}

type diskStore struct {
	baseDir string
}

// NewDiskStore creates the upload directory if needed and returns a
// local-disk AttachmentStore rooted there.
func NewDiskStore(baseDir string) (AttachmentStore, error) {
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}
	return &diskStore{baseDir: baseDir}, nil
}

// Save writes the file under a pdf/image/others subfolder with a timestamped
// name and returns its locator plus the original display name.
func (s *diskStore) Save(content []byte, requestID, originalName string) (model.Attachment, error) {
	if originalName == "" {
		originalName = "unnamed_file"
	}
	sanitized := strings.ReplaceAll(originalName, " ", "_")

	ext := ""
	if i := strings.LastIndex(sanitized, "."); i >= 0 && i < len(sanitized)-1 {
		ext = strings.ToLower(sanitized[i+1:])
	}
	subfolder := "others"
	switch ext {
	case "pdf":
		subfolder = "pdf"
	case "jpg", "jpeg", "png", "gif", "bmp":
		subfolder = "image"
	}

	dir := filepath.Join(s.baseDir, subfolder)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return model.Attachment{}, fmt.Errorf("failed to create upload subfolder: %w", err)
	}

	name := fmt.Sprintf("%s_%s_%s", requestID, time.Now().UTC().Format("20060102150405"), sanitized)
	if err := os.WriteFile(filepath.Join(dir, name), content, 0o644); err != nil {
		return model.Attachment{}, fmt.Errorf("failed to store attachment: %w", err)
	}

	return model.Attachment{
		FileURL:         "/files/" + subfolder + "/" + name,
		FileDisplayName: originalName,
	}, nil
}

// Remove deletes the stored file behind a locator. A missing file is not an
// error; the record removal is what matters.
func (s *diskStore) Remove(fileURL string) error {
	rel := strings.TrimPrefix(fileURL, "/files/")
	rel = filepath.Clean("/" + rel)[1:] // strip any traversal
	path := filepath.Join(s.baseDir, rel)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file from disk: %w", err)
	}
	return nil
}
