package files

import (
	"fmt"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/thereayou/converse/internal/models"
)

// MaxUploadSize caps a single attachment at 50 MB.
const MaxUploadSize = 50 << 20

// Storage writes uploaded attachments to local disk under a per-room
// directory and returns the metadata the message row carries.
type Storage struct {
	root string
}

func NewStorage(root string) (*Storage, error) {
	if root == "" {
		root = "uploads"
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create upload root: %w", err)
	}
	return &Storage{root: root}, nil
}

// Save stores one uploaded file. The stored name is a fresh UUID with the
// original extension, so user-controlled names never hit the filesystem.
// StoredPath in the returned metadata is relative to the upload root; URL is
// the download route that serves the file back.
func (s *Storage) Save(c *gin.Context, roomID uuid.UUID, file *multipart.FileHeader) (models.Attachment, error) {
	if file.Size > MaxUploadSize {
		return models.Attachment{}, fmt.Errorf("file %q exceeds upload limit", file.Filename)
	}

	dir := filepath.Join(s.root, roomID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return models.Attachment{}, fmt.Errorf("create room dir: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	name := uuid.New().String() + ext
	if err := c.SaveUploadedFile(file, filepath.Join(dir, name)); err != nil {
		return models.Attachment{}, fmt.Errorf("store upload: %w", err)
	}

	mimeType := file.Header.Get("Content-Type")
	return models.Attachment{
		OriginalName: file.Filename,
		StoredPath:   roomID.String() + "/" + name,
		URL:          FileURL(roomID, name),
		Size:         file.Size,
		MimeType:     mimeType,
		Category:     Categorize(mimeType, ext),
	}, nil
}

// SaveAll stores a batch, removing everything already written if any single
// file fails.
func (s *Storage) SaveAll(c *gin.Context, roomID uuid.UUID, headers []*multipart.FileHeader) ([]models.Attachment, error) {
	attachments := make([]models.Attachment, 0, len(headers))
	for _, h := range headers {
		a, err := s.Save(c, roomID, h)
		if err != nil {
			for _, stored := range attachments {
				os.Remove(filepath.Join(s.root, filepath.FromSlash(stored.StoredPath)))
			}
			return nil, err
		}
		attachments = append(attachments, a)
	}
	return attachments, nil
}

// FileURL is the download route serving a stored attachment.
func FileURL(roomID uuid.UUID, name string) string {
	return fmt.Sprintf("/api/v1/rooms/%s/files/%s", roomID, name)
}

// FilePath resolves a stored file name inside a room's directory. Names
// carrying path separators or traversal segments never resolve, so a request
// cannot escape the upload root.
func (s *Storage) FilePath(roomID uuid.UUID, name string) (string, error) {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("invalid file name %q", name)
	}
	p := filepath.Join(s.root, roomID.String(), name)
	if _, err := os.Stat(p); err != nil {
		return "", err
	}
	return p, nil
}

// Categorize buckets a file for rendering: image, audio, document or other.
func Categorize(mimeType, ext string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "image"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "other"
	}
	switch ext {
	case ".pdf", ".doc", ".docx", ".xls", ".xlsx", ".txt", ".csv":
		return "document"
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return "image"
	case ".mp3", ".ogg", ".wav", ".m4a":
		return "audio"
	}
	return "other"
}
