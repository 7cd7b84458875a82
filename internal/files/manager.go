package files

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
)

// Manager provides file management operations
type Manager struct {
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{logger: logger}
}

// CopyResult reports what CopyNoClobber did
type CopyResult int

const (
	Copied CopyResult = iota
	AlreadyPresent
)

// CopyNoClobber copies src to dst without ever overwriting. If dst already
// holds identical content the copy is skipped; any other existing dst is a
// CollisionError.
func (m *Manager) CopyNoClobber(src, dst string) (CopyResult, error) {
	if _, err := os.Stat(dst); err == nil {
		same, err := SameContent(src, dst)
		if err != nil {
			return Copied, apperrors.NewStorageError("failed to compare with existing destination", err)
		}
		if same {
			m.logger.Info("file already staged",
				slog.String("src", src),
				slog.String("dst", dst))
			return AlreadyPresent, nil
		}
		return Copied, apperrors.NewCollisionError(dst)
	} else if !errors.Is(err, fs.ErrNotExist) {
		return Copied, apperrors.NewStorageError("failed to stat destination", err)
	}

	m.logger.Info("Copying file",
		slog.String("src", src),
		slog.String("dst", dst))

	if err := copyExclusive(src, dst); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Copied, apperrors.NewCollisionError(dst)
		}
		return Copied, apperrors.NewStorageError(fmt.Sprintf("failed to copy %s", filepath.Base(src)), err)
	}
	return Copied, nil
}

// CheckDestination reports a CollisionError when dst exists with content
// different from src. It never modifies anything.
func (m *Manager) CheckDestination(src, dst string) error {
	if _, err := os.Stat(dst); errors.Is(err, fs.ErrNotExist) {
		return nil
	} else if err != nil {
		return apperrors.NewStorageError("failed to stat destination", err)
	}

	same, err := SameContent(src, dst)
	if err != nil {
		return apperrors.NewStorageError("failed to compare with existing destination", err)
	}
	if !same {
		return apperrors.NewCollisionError(dst)
	}
	return nil
}

// DeleteFile deletes a file
func (m *Manager) DeleteFile(path string) error {
	m.logger.Info("Deleting file", slog.String("path", path))
	return os.Remove(path)
}

// SameContent reports whether two files have equal size and SHA-256.
func SameContent(a, b string) (bool, error) {
	ia, err := os.Stat(a)
	if err != nil {
		return false, err
	}
	ib, err := os.Stat(b)
	if err != nil {
		return false, err
	}
	if ia.Size() != ib.Size() {
		return false, nil
	}

	ha, err := fileDigest(a)
	if err != nil {
		return false, err
	}
	hb, err := fileDigest(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ha, hb), nil
}

func fileDigest(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// copyExclusive creates dst with O_EXCL and removes the partial file on
// failure.
func copyExclusive(src, dst string) (err error) {
	if err := os.MkdirAll(filepath.Dir(dst), config.DirPermissions); err != nil {
		return fmt.Errorf("failed to create destination directory: %w", err)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open source file: %w", err)
	}
	defer srcFile.Close()

	dstFile, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, config.FilePermissions)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := dstFile.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			os.Remove(dst)
		}
	}()

	if _, err = io.Copy(dstFile, srcFile); err != nil {
		return fmt.Errorf("failed to copy file content: %w", err)
	}
	return dstFile.Sync()
}
