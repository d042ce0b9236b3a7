// Package archive reads site archives without extracting them.
package archive

import (
	"archive/tar"
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/semmidev/drupal-archive/internal/domain"
)

// Layout summarizes the entries of a site archive.
type Layout struct {
	Path string
	// Roots are the distinct top-level directories.
	Roots []string
	// SQLFiles are the *.sql files stored at the archive root.
	SQLFiles []string
	// UploadedFiles are entries below <root>/sites/<site>/files.
	UploadedFiles []string
	Entries       int
	Size          int64
	Compressed    bool
}

type Inspector struct{}

func NewInspector() *Inspector {
	return &Inspector{}
}

// Inspect lists a tar or tar.gz archive.
func (i *Inspector) Inspect(archivePath string) (*Layout, error) {
	file, err := os.Open(archivePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open archive: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return nil, fmt.Errorf("failed to stat archive: %w", err)
	}

	layout := &Layout{Path: archivePath, Size: info.Size()}

	buffered := bufio.NewReader(file)
	var reader io.Reader = buffered
	if magic, _ := buffered.Peek(2); len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		gzipReader, err := gzip.NewReader(buffered)
		if err != nil {
			return nil, fmt.Errorf("failed to create gzip reader: %w", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
		layout.Compressed = true
	}

	roots := map[string]bool{}
	tarReader := tar.NewReader(reader)
	for {
		header, err := tarReader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read archive entry: %w", err)
		}
		layout.Entries++

		name := strings.TrimPrefix(path.Clean(header.Name), "./")
		parts := strings.Split(name, "/")

		switch {
		case len(parts) == 1 && header.Typeflag == tar.TypeDir:
			roots[name] = true
		case len(parts) == 1:
			if strings.HasSuffix(name, ".sql") {
				layout.SQLFiles = append(layout.SQLFiles, name)
			}
		default:
			roots[parts[0]] = true
			if len(parts) >= 4 && parts[1] == "sites" && parts[3] == "files" {
				layout.UploadedFiles = append(layout.UploadedFiles, name)
			}
		}
	}

	for root := range roots {
		layout.Roots = append(layout.Roots, root)
	}
	sort.Strings(layout.Roots)
	return layout, nil
}

// Verify inspects the archive and validates its layout.
func (i *Inspector) Verify(archivePath string) error {
	layout, err := i.Inspect(archivePath)
	if err != nil {
		return err
	}
	return layout.Validate()
}

// Validate checks the archive holds exactly one site directory, exactly one
// SQL dump and no uploaded files.
func (l *Layout) Validate() error {
	switch {
	case len(l.Roots) != 1:
		return &domain.AmbiguousArchiveLayoutError{
			Dir:  l.Path,
			Want: fmt.Sprintf("exactly one top-level directory, found %d", len(l.Roots)),
		}
	case len(l.SQLFiles) != 1:
		return &domain.AmbiguousArchiveLayoutError{
			Dir:  l.Path,
			Want: fmt.Sprintf("exactly one *.sql file, found %d", len(l.SQLFiles)),
		}
	case len(l.UploadedFiles) > 0:
		return &domain.AmbiguousArchiveLayoutError{
			Dir:  l.Path,
			Want: fmt.Sprintf("no sites/*/files content, found %s", l.UploadedFiles[0]),
		}
	}
	return nil
}
