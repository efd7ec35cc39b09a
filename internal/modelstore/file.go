package modelstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"supportbot/internal/domain"
)

// File stores each blob as <dir>/<kind>_model.json.
type File struct {
	dir string
}

// NewFile returns a file store rooted at dir. The directory is created on first save.
func NewFile(dir string) *File { return &File{dir: dir} }

func (f *File) Name() string { return "file" }

// Path returns where the blob for kind lives.
func (f *File) Path(kind domain.Kind) string {
	return filepath.Join(f.dir, string(kind)+"_model.json")
}

// Save writes to a temp file and renames it over the previous blob.
func (f *File) Save(ctx context.Context, kind domain.Kind, blob []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}
	path := f.Path(kind)
	tmp, err := os.CreateTemp(f.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(blob); err != nil {
		tmp.Close()
		return fmt.Errorf("write model file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replace model file: %w", err)
	}
	return nil
}

func (f *File) Load(ctx context.Context, kind domain.Kind) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(f.Path(kind))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", f.Path(kind), domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read model file: %w", err)
	}
	return data, nil
}

func (f *File) Close() error { return nil }
