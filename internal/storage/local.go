package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

var ErrInvalidPath = errors.New("storage: invalid path")

// LocalStore writes uploads below root and serves them under publicPath.
type LocalStore struct {
	root       string
	publicPath string
}

func NewLocalStore(root, publicPath string) (*LocalStore, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve upload dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{
		root:       abs,
		publicPath: "/" + strings.Trim(publicPath, "/"),
	}, nil
}

func (s *LocalStore) Root() string {
	return s.root
}

func (s *LocalStore) PublicPath() string {
	return s.publicPath
}

// Save writes data to dir/filename and returns its public URL. dir may be
// nested; neither part may escape the root.
func (s *LocalStore) Save(ctx context.Context, dir, filename string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if filename == "" || strings.ContainsAny(filename, `/\`) || strings.Contains(filename, "..") {
		return "", fmt.Errorf("%w: filename %q", ErrInvalidPath, filename)
	}

	if strings.Contains(dir, "..") {
		return "", fmt.Errorf("%w: dir %q", ErrInvalidPath, dir)
	}
	rel := path.Clean("/" + filepath.ToSlash(dir))

	target := filepath.Join(s.root, filepath.FromSlash(rel))
	if err := os.MkdirAll(target, 0o750); err != nil {
		return "", fmt.Errorf("create %s: %w", rel, err)
	}
	if err := os.WriteFile(filepath.Join(target, filename), data, 0o640); err != nil {
		return "", fmt.Errorf("write %s: %w", filename, err)
	}

	return path.Join(s.publicPath, rel, filename), nil
}
