package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"noteface-service/models"
)

// FSStore reads artifacts the compilation worker wrote under a local directory
type FSStore struct {
	root string
}

func NewFSStore(root string) *FSStore {
	if root == "" {
		root = "./documents"
	}
	return &FSStore{root: root}
}

func (s *FSStore) path(document, sha string) string {
	return filepath.Join(s.root, filepath.FromSlash(ObjectPath(document, sha)))
}

func (s *FSStore) Exists(ctx context.Context, document, sha string) (bool, error) {
	info, err := os.Stat(s.path(document, sha))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to stat artifact: %w", err)
	}
	return info.Mode().IsRegular(), nil
}

func (s *FSStore) Open(ctx context.Context, document, sha string) (io.ReadCloser, error) {
	f, err := os.Open(s.path(document, sha))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, &models.NotFoundError{Message: fmt.Sprintf("artifact %s@%s not found", document, sha)}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open artifact: %w", err)
	}
	return f, nil
}
