package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// WeekLayout is the run context: the Monday to Friday week a run belongs to
// and every output location derived from it. It is built once per run and
// passed explicitly to the components that write output.
type WeekLayout struct {
	Monday time.Time
	Friday time.Time

	// Name is "<Monday> to <Friday>" in ISO dates.
	Name string

	OutputRoot  string
	Dir         string
	FiguresDir  string
	RawDir      string
	ArchivePath string
}

// NewWeekLayout computes the week containing now. Weekends belong to the
// week that started on the preceding Monday.
func NewWeekLayout(outputRoot string, now time.Time) (*WeekLayout, error) {
	root, err := filepath.Abs(outputRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve output root %s: %w", outputRoot, err)
	}

	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	offset := (int(day.Weekday()) + 6) % 7
	monday := day.AddDate(0, 0, -offset)
	friday := monday.AddDate(0, 0, 4)

	name := fmt.Sprintf(WeekFolderLayout, monday.Format(ISODate), friday.Format(ISODate))
	dir := filepath.Join(root, name)

	return &WeekLayout{
		Monday:      monday,
		Friday:      friday,
		Name:        name,
		OutputRoot:  root,
		Dir:         dir,
		FiguresDir:  filepath.Join(dir, FiguresDirName),
		RawDir:      filepath.Join(dir, RawDataDirName),
		ArchivePath: dir + ArchiveExt,
	}, nil
}

// EnsureDirectories creates the week folder with its figures and raw data
// subfolders. Existing folders from an earlier run in the same week are kept.
func (w *WeekLayout) EnsureDirectories() error {
	for _, dir := range []string{w.Dir, w.FiguresDir, w.RawDir} {
		if err := os.MkdirAll(dir, DirPermissions); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// ArchiveName is the attachment file name of the weekly archive.
func (w *WeekLayout) ArchiveName() string {
	return filepath.Base(w.ArchivePath)
}

// FigurePath returns the location of a figure file inside the week folder.
func (w *WeekLayout) FigurePath(name string) string {
	return filepath.Join(w.FiguresDir, name)
}

// RawPath returns the location of a relocated input file.
func (w *WeekLayout) RawPath(name string) string {
	return filepath.Join(w.RawDir, name)
}

// FileExists reports whether path exists
func FileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
