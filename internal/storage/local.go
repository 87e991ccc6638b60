package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"chatcore/internal/domain"
)

// Local is a disk-backed object storage collaborator. Objects are stored
// under a single directory with generated names and addressed by URL path.
type Local struct {
	dir     string
	baseURL string
}

func NewLocal(dir, baseURL string) *Local {
	return &Local{dir: dir, baseURL: baseURL}
}

var _ domain.ObjectStorage = (*Local)(nil)

func (l *Local) Store(ctx context.Context, name string, r io.Reader) (*domain.StoredFile, error) {
	ext := filepath.Ext(name)
	filename := uuid.NewString() + ext
	destPath := filepath.Join(l.dir, filename)

	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}
	defer out.Close()

	size, err := io.Copy(out, r)
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("write file: %w", err)
	}

	return &domain.StoredFile{
		URL:  l.baseURL + "/" + filename,
		Name: name,
		Size: size,
	}, nil
}

func (l *Local) Delete(ctx context.Context, url string) error {
	filename := path.Base(url)
	// path.Base already strips separators; re-check against traversal.
	if filename == "." || filename == ".." || filename == "/" {
		return fmt.Errorf("invalid object url %q", url)
	}
	if err := os.Remove(filepath.Join(l.dir, filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove file: %w", err)
	}
	return nil
}
