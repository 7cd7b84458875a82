package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	"impedancecli/internal/config"
	apperrors "impedancecli/internal/errors"
	"impedancecli/internal/files"
	"impedancecli/pkg/contracts/domain"
)

// Result describes a written archive.
type Result struct {
	Path    string
	Members []string
	Bytes   int64
}

// Archiver owns the move and compress operations of a run.
type Archiver struct {
	files  *files.Manager
	logger *slog.Logger
}

// NewArchiver creates an archiver that copies through fm.
func NewArchiver(fm *files.Manager, logger *slog.Logger) *Archiver {
	if logger == nil {
		logger = slog.Default()
	}
	if fm == nil {
		fm = files.NewManager(logger)
	}
	return &Archiver{files: fm, logger: logger}
}

// Stage copies every input into the week's raw data folder. All destinations
// are checked before the first copy so a collision leaves nothing half moved.
func (a *Archiver) Stage(ctx context.Context, week *config.WeekLayout, inputs []domain.MeasurementFile) (int, error) {
	for _, in := range inputs {
		if err := a.files.CheckDestination(in.Path, week.RawPath(in.Name)); err != nil {
			return 0, err
		}
	}

	copied := 0
	for _, in := range inputs {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		res, err := a.files.CopyNoClobber(in.Path, week.RawPath(in.Name))
		if err != nil {
			return copied, err
		}
		if res == files.Copied {
			copied++
		}
	}

	a.logger.InfoContext(ctx, "input files staged",
		slog.String("dir", week.RawDir),
		slog.Int("files", len(inputs)),
		slog.Int("copied", copied))
	return copied, nil
}

// Compress zips the week folder into week.ArchivePath. Members are named
// relative to the output root with forward slashes and written in lexical
// order, so an unchanged folder always yields the same member list.
func (a *Archiver) Compress(ctx context.Context, week *config.WeekLayout) (*Result, error) {
	paths, err := collect(week.Dir)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to list week folder", err)
	}

	tmp, err := os.CreateTemp(week.OutputRoot, ".archive-*.zip")
	if err != nil {
		return nil, apperrors.NewStorageError("failed to create temp archive", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	zw := zip.NewWriter(tmp)
	members := make([]string, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			zw.Close()
			tmp.Close()
			return nil, err
		}
		rel, err := filepath.Rel(week.OutputRoot, p)
		if err != nil {
			zw.Close()
			tmp.Close()
			return nil, apperrors.NewStorageError("failed to name archive member", err)
		}
		name := filepath.ToSlash(rel)
		if err := addFile(zw, p, name); err != nil {
			zw.Close()
			tmp.Close()
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to add %s", name), err)
		}
		members = append(members, name)
	}

	if err := zw.Close(); err != nil {
		tmp.Close()
		return nil, apperrors.NewStorageError("failed to finish archive", err)
	}
	if err := tmp.Close(); err != nil {
		return nil, apperrors.NewStorageError("failed to close archive", err)
	}
	if err := os.Chmod(tmpPath, config.FilePermissions); err != nil {
		return nil, apperrors.NewStorageError("failed to set archive permissions", err)
	}
	if err := os.Rename(tmpPath, week.ArchivePath); err != nil {
		return nil, apperrors.NewStorageError("failed to move archive into place", err)
	}

	info, err := os.Stat(week.ArchivePath)
	if err != nil {
		return nil, apperrors.NewStorageError("failed to stat archive", err)
	}

	a.logger.InfoContext(ctx, "week folder compressed",
		slog.String("archive", week.ArchivePath),
		slog.Int("members", len(members)),
		slog.Int64("bytes", info.Size()))

	return &Result{Path: week.ArchivePath, Members: members, Bytes: info.Size()}, nil
}

// Finalize removes the original input files once they are archived. Inputs
// already gone are skipped.
func (a *Archiver) Finalize(ctx context.Context, week *config.WeekLayout, inputs []domain.MeasurementFile) error {
	for _, in := range inputs {
		if !config.FileExists(week.RawPath(in.Name)) {
			return apperrors.NewStorageError(
				fmt.Sprintf("refusing to remove %s: no staged copy", in.Name), nil)
		}
		if err := a.files.DeleteFile(in.Path); err != nil && !os.IsNotExist(err) {
			return apperrors.NewStorageError(fmt.Sprintf("failed to remove %s", in.Path), err)
		}
	}
	a.logger.InfoContext(ctx, "input files moved", slog.Int("files", len(inputs)))
	return nil
}

// ReadMembers lists the member names of a zip archive in stored order.
func ReadMembers(path string) ([]string, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	names := make([]string, len(r.File))
	for i, f := range r.File {
		names[i] = f.Name
	}
	return names, nil
}

func collect(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(paths)
	return paths, nil
}

func addFile(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return err
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}
