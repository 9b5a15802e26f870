// Package fs stores uploaded complaint attachments in a local directory
// under storage-assigned names, keeping user-supplied filenames out of the
// filesystem entirely.
package fs

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/civichub/civichub/internal/domain"
)

// Compile-time check: AttachmentStore implements domain.AttachmentStore.
var _ domain.AttachmentStore = (*AttachmentStore)(nil)

// AttachmentStore writes attachment blobs into a single flat directory.
type AttachmentStore struct {
	dir string
}

// New creates the uploads directory if needed and returns a ready store.
func New(dir string) (*AttachmentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating uploads directory: %w", err)
	}
	return &AttachmentStore{dir: dir}, nil
}

// Dir returns the directory attachments are stored in.
func (s *AttachmentStore) Dir() string {
	return s.dir
}

// Save writes the content under a storage-assigned name and returns that
// name. Only the extension of the original filename survives, sanitized to
// lowercase alphanumerics.
func (s *AttachmentStore) Save(ctx context.Context, originalName string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	name, err := storedName(originalName)
	if err != nil {
		return "", fmt.Errorf("assigning attachment name: %w", err)
	}

	// O_EXCL guards against the store ever overwriting an existing blob.
	f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("creating attachment file: %w", err)
	}

	if _, err := io.Copy(f, content); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("writing attachment: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing attachment file: %w", err)
	}

	return name, nil
}

// storedName builds "<unix millis>-<8 hex chars><ext>".
func storedName(originalName string) (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return fmt.Sprintf("%d-%s%s",
		time.Now().UnixMilli(), hex.EncodeToString(b[:]), safeExt(originalName)), nil
}

// safeExt extracts a usable extension from a user-supplied filename. Anything
// but short lowercase alphanumerics is dropped.
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 8 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
