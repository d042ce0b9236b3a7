// Package settings reads and provisions the database credentials stored in a
// Drupal settings.php without executing it.
package settings

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/semmidev/drupal-archive/internal/domain"
)

const (
	FileName     = "settings.php"
	TemplateName = "default.settings.php"
)

// Candidate site directories, relative to the site root, in lookup order.
var siteDirs = []string{
	filepath.Join("sites", "default"),
	filepath.Join("docroot", "sites", "default"),
}

type Reader struct {
	fs afero.Fs
}

func NewReader(fs afero.Fs) *Reader {
	return &Reader{fs: fs}
}

// Locate returns the first settings.php found under root.
func (r *Reader) Locate(root string) (string, error) {
	var searched []string
	for _, dir := range siteDirs {
		path := filepath.Join(root, dir, FileName)
		searched = append(searched, path)
		if ok, _ := afero.Exists(r.fs, path); ok {
			return path, nil
		}
	}
	return "", &domain.SettingsNotFoundError{Searched: searched}
}

// SettingsPath returns the settings.php a restored site should use: the first
// candidate whose directory exists, else the standard location.
func (r *Reader) SettingsPath(root string) string {
	for _, dir := range siteDirs {
		if ok, _ := afero.DirExists(r.fs, filepath.Join(root, dir)); ok {
			return filepath.Join(root, dir, FileName)
		}
	}
	return filepath.Join(root, siteDirs[0], FileName)
}

// Extract returns $databases['default']['default'] from the settings file.
func (r *Reader) Extract(path string) (domain.DatabaseCredentials, error) {
	src, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return domain.DatabaseCredentials{}, fmt.Errorf("failed to read settings file: %w", err)
	}

	databases, ok := parseVariable(string(src), "$databases").(map[string]interface{})
	if !ok {
		return domain.DatabaseCredentials{}, &domain.ConfigNotFoundError{Path: path, Reason: "no literal $databases array"}
	}
	group, ok := databases["default"].(map[string]interface{})
	if !ok {
		return domain.DatabaseCredentials{}, &domain.ConfigNotFoundError{Path: path, Reason: "no 'default' connection key"}
	}
	conn, ok := group["default"].(map[string]interface{})
	if !ok {
		return domain.DatabaseCredentials{}, &domain.ConfigNotFoundError{Path: path, Reason: "no 'default' target in the 'default' connection"}
	}

	creds := domain.DatabaseCredentials{
		Driver:   domain.NormalizeDriver(field(conn, "driver")),
		Username: field(conn, "username"),
		Password: field(conn, "password"),
		Host:     field(conn, "host"),
		Port:     field(conn, "port"),
		Database: field(conn, "database"),
	}
	if missing := creds.MissingFields(); len(missing) > 0 {
		return domain.DatabaseCredentials{}, &domain.ConfigNotFoundError{
			Path:   path,
			Reason: "missing " + strings.Join(missing, ", "),
		}
	}
	return creds, nil
}

func field(m map[string]interface{}, key string) string {
	s, _ := m[key].(string)
	return s
}

// Append adds a credentials block at the end of the settings file, creating it
// from default.settings.php when it does not exist yet.
func (r *Reader) Append(path string, creds domain.DatabaseCredentials) error {
	dir := filepath.Dir(path)
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create settings directory: %w", err)
	}
	if err := r.makeWritable(dir, 0700); err != nil {
		return err
	}

	if ok, _ := afero.Exists(r.fs, path); ok {
		if err := r.makeWritable(path, 0200); err != nil {
			return err
		}
	}

	content, mode, err := r.current(path)
	if err != nil {
		return err
	}

	if len(content) > 0 && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += Render(creds)

	if err := afero.WriteFile(r.fs, path, []byte(content), mode|0200); err != nil {
		return fmt.Errorf("failed to write settings file: %w", err)
	}
	return nil
}

// current returns the existing settings content, the template, or a bare PHP
// opening tag, together with the mode the result should keep.
func (r *Reader) current(path string) (string, os.FileMode, error) {
	for _, candidate := range []string{path, filepath.Join(filepath.Dir(path), TemplateName)} {
		info, err := r.fs.Stat(candidate)
		if err != nil {
			continue
		}
		data, err := afero.ReadFile(r.fs, candidate)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read %s: %w", candidate, err)
		}
		return string(data), info.Mode().Perm(), nil
	}
	return "<?php\n", 0644, nil
}

func (r *Reader) makeWritable(path string, bits os.FileMode) error {
	info, err := r.fs.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.Mode().Perm()&bits == bits {
		return nil
	}
	if err := r.fs.Chmod(path, info.Mode().Perm()|bits); err != nil {
		return fmt.Errorf("failed to make %s writable: %w", path, err)
	}
	return nil
}

// Render formats credentials the way Append writes them.
func Render(creds domain.DatabaseCredentials) string {
	var b strings.Builder
	b.WriteString("\n$databases['default']['default'] = array (\n")
	entries := [][2]string{
		{"database", creds.Database},
		{"username", creds.Username},
		{"password", creds.Password},
		{"prefix", ""},
		{"host", creds.Host},
		{"port", creds.Port},
	}
	if creds.Driver != "" {
		entries = append(entries, [2]string{"namespace", `Drupal\Core\Database\Driver\` + creds.Driver})
	}
	entries = append(entries, [2]string{"driver", creds.Driver})
	for _, kv := range entries {
		fmt.Fprintf(&b, "  '%s' => '%s',\n", kv[0], quote(kv[1]))
	}
	b.WriteString(");\n")
	return b.String()
}

func quote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
