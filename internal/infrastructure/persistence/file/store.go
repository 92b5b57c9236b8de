package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/coursework/storehub/internal/domain/shared"
)

// Store reads and writes envelopes on the local filesystem.
type Store struct {
	perm fs.FileMode
}

// NewStore creates a Store that writes files with the given permissions.
func NewStore(perm fs.FileMode) *Store {
	if perm == 0 {
		perm = 0o644
	}
	return &Store{perm: perm}
}

// Save writes env to path. The file is written to a temporary sibling and
// renamed into place, so a failed save leaves either no file or the previous
// one untouched. There is no retry.
func (s *Store) Save(ctx context.Context, path string, env Envelope) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := env.Marshal()
	if err != nil {
		return err
	}

	cleanPath := filepath.Clean(path)
	tmp, err := os.CreateTemp(filepath.Dir(cleanPath), "."+filepath.Base(cleanPath)+".*.tmp")
	if err != nil {
		return storageError("Save", cleanPath, err)
	}
	tmpName := tmp.Name()

	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return storageError("Save", cleanPath, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return storageError("Save", cleanPath, err)
	}
	if err := tmp.Close(); err != nil {
		return storageError("Save", cleanPath, err)
	}
	if err := os.Chmod(tmpName, s.perm); err != nil {
		return storageError("Save", cleanPath, err)
	}
	if err := os.Rename(tmpName, cleanPath); err != nil {
		return storageError("Save", cleanPath, err)
	}

	committed = true
	return nil
}

// Load reads and parses the envelope stored at path.
func (s *Store) Load(ctx context.Context, path string) (Envelope, error) {
	if err := ctx.Err(); err != nil {
		return Envelope{}, err
	}

	cleanPath := filepath.Clean(path)
	data, err := os.ReadFile(cleanPath) // #nosec G304 - path comes from the operator
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Envelope{}, shared.WrapError("envelope", "Load", shared.ErrNotFound,
				fmt.Sprintf("no saved file at %s", cleanPath), err)
		}
		return Envelope{}, storageError("Load", cleanPath, err)
	}

	return Unmarshal(data)
}

func storageError(op, path string, err error) error {
	return shared.WrapError("envelope", op, shared.ErrStorage, fmt.Sprintf("file %s", path), err)
}
