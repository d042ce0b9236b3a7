package usecase

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/semmidev/drupal-archive/internal/domain"
)

const workDirPrefix = "drupal-archive-restore-"

// WorkingDirectory is the extraction area of a single restore.
type WorkingDirectory struct {
	fs   afero.Fs
	Path string
}

func newWorkingDirectory(fs afero.Fs, root string, now time.Time) (*WorkingDirectory, error) {
	name := fmt.Sprintf("%s%d-%s", workDirPrefix, now.Unix(), uuid.NewString()[:8])
	path := filepath.Join(root, name)
	if err := fs.MkdirAll(path, 0700); err != nil {
		return nil, fmt.Errorf("failed to create working directory: %w", err)
	}
	return &WorkingDirectory{fs: fs, Path: path}, nil
}

// Close removes the directory, whatever permissions the extracted tree has.
func (w *WorkingDirectory) Close() error {
	return forceRemoveAll(w.fs, w.Path)
}

// first returns the first depth-one entry, in name order, accepted by match.
func (w *WorkingDirectory) first(match func(os.FileInfo) bool, want string) (string, error) {
	entries, err := afero.ReadDir(w.fs, w.Path)
	if err != nil {
		return "", fmt.Errorf("failed to list working directory: %w", err)
	}
	for _, entry := range entries {
		if match(entry) {
			return filepath.Join(w.Path, entry.Name()), nil
		}
	}
	return "", &domain.AmbiguousArchiveLayoutError{Dir: w.Path, Want: want}
}

// forceRemoveAll opens up permissions below path, then removes it.
func forceRemoveAll(fs afero.Fs, path string) error {
	_ = afero.Walk(fs, path, func(p string, info os.FileInfo, err error) error {
		if err != nil || info.Mode()&os.ModeSymlink != 0 {
			return nil
		}
		if info.IsDir() {
			_ = fs.Chmod(p, info.Mode().Perm()|0700)
		} else {
			_ = fs.Chmod(p, info.Mode().Perm()|0600)
		}
		return nil
	})
	if err := fs.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// copyTree copies src into dst, creating dst and its parents.
func copyTree(fs afero.Fs, src, dst string) error {
	return afero.Walk(fs, src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)

		switch {
		case info.Mode()&os.ModeSymlink != 0:
			return copySymlink(fs, path, target)
		case info.IsDir():
			return fs.MkdirAll(target, info.Mode().Perm()|0700)
		case info.Mode().IsRegular():
			return copyFile(fs, path, target, info.Mode().Perm())
		}
		return nil
	})
}

func copyFile(fs afero.Fs, src, dst string, perm os.FileMode) error {
	in, err := fs.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	if err := fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return fmt.Errorf("failed to create %s: %w", filepath.Dir(dst), err)
	}
	out, err := fs.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s: %w", src, err)
	}
	return out.Close()
}

func copySymlink(fs afero.Fs, src, dst string) error {
	reader, ok := fs.(afero.LinkReader)
	linker, ok2 := fs.(afero.Linker)
	if !ok || !ok2 {
		return fmt.Errorf("cannot copy symlink %s: filesystem does not support links", src)
	}
	target, err := reader.ReadlinkIfPossible(src)
	if err != nil {
		return fmt.Errorf("failed to read link %s: %w", src, err)
	}
	if err := linker.SymlinkIfPossible(target, dst); err != nil {
		return fmt.Errorf("failed to create link %s: %w", dst, err)
	}
	return nil
}
