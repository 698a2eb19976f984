// Package staging keeps uploaded files on local disk until the files
// section is synced.
package staging

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rpggio/listingdraft/internal/domain/draft"
)

var (
	// ErrTooLarge indicates a file exceeded the configured size limit.
	ErrTooLarge = errors.New("file exceeds size limit")
	// ErrOutsideStore indicates a handle doesn't point into the store.
	ErrOutsideStore = errors.New("file is outside the staging directory")
)

// Store writes staged files under one directory, one folder per owner.
type Store struct {
	dir     string
	maxSize int64
}

// New creates the staging directory if needed. maxSize <= 0 disables the
// size limit.
func New(dir string, maxSize int64) (*Store, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve staging dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir: %w", err)
	}
	return &Store{dir: abs, maxSize: maxSize}, nil
}

// Put copies r into the store and returns a pending file handle.
func (s *Store) Put(ctx context.Context, ownerID, name, contentType string, r io.Reader) (draft.FileHandle, error) {
	if err := ctx.Err(); err != nil {
		return draft.FileHandle{}, err
	}
	name = filepath.Base(strings.TrimSpace(name))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return draft.FileHandle{}, fmt.Errorf("%w: file name required", draft.ErrInvalidPayload)
	}
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(name))
	}

	ownerDir := filepath.Join(s.dir, ownerFolder(ownerID))
	if err := os.MkdirAll(ownerDir, 0o755); err != nil {
		return draft.FileHandle{}, fmt.Errorf("failed to create owner dir: %w", err)
	}
	id := uuid.NewString()
	path := filepath.Join(ownerDir, id+filepath.Ext(name))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
	if err != nil {
		return draft.FileHandle{}, fmt.Errorf("failed to create staged file: %w", err)
	}
	src := r
	if s.maxSize > 0 {
		src = io.LimitReader(r, s.maxSize+1)
	}
	size, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr == nil && s.maxSize > 0 && size > s.maxSize {
		copyErr = ErrTooLarge
	}
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(path)
		return draft.FileHandle{}, fmt.Errorf("failed to stage %s: %w", name, err)
	}

	return draft.FileHandle{
		ID:          id,
		Name:        name,
		ContentType: contentType,
		Size:        size,
		Path:        path,
		Status:      draft.FilePending,
	}, nil
}

// Remove deletes a staged file. Missing files are not an error.
func (s *Store) Remove(h draft.FileHandle) error {
	rel, err := filepath.Rel(s.dir, h.Path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ErrOutsideStore
	}
	if err := os.Remove(h.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to remove staged file: %w", err)
	}
	return nil
}

func ownerFolder(ownerID string) string {
	sum := sha256.Sum256([]byte(ownerID))
	return hex.EncodeToString(sum[:8])
}
