package storage

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/option"

	"github.com/semmidev/drupal-archive/internal/config"
)

type GDriveStorage struct {
	service  *drive.Service
	folderID string
}

func NewGDrive(ctx context.Context, cfg *config.UploadTarget) (*GDriveStorage, error) {
	auth, err := gdriveAuth(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service, err := drive.NewService(ctx, auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive service: %w", err)
	}

	return &GDriveStorage{
		service:  service,
		folderID: cfg.FolderID,
	}, nil
}

// gdriveAuth prefers a service account file, else an OAuth client refreshed
// with the token printed by gdrive-auth.
func gdriveAuth(ctx context.Context, cfg *config.UploadTarget) (option.ClientOption, error) {
	if cfg.CredentialsFile != "" {
		return option.WithCredentialsFile(cfg.CredentialsFile), nil
	}

	oauthCfg, err := LoadOAuthConfig(cfg.ClientSecretFile)
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{RefreshToken: cfg.RefreshToken}
	return option.WithTokenSource(oauthCfg.TokenSource(ctx, token)), nil
}

// LoadOAuthConfig reads a client_secret.json downloaded from the Google console.
func LoadOAuthConfig(clientSecretPath string) (*oauth2.Config, error) {
	b, err := os.ReadFile(clientSecretPath)
	if err != nil {
		return nil, fmt.Errorf("unable to read client secret: %w", err)
	}

	cfg, err := google.ConfigFromJSON(b, drive.DriveFileScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse client secret: %w", err)
	}
	return cfg, nil
}

func (g *GDriveStorage) Upload(ctx context.Context, localPath string, remoteName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	fileMetadata := &drive.File{
		Name:     remoteName,
		Parents:  []string{g.folderID},
		MimeType: "application/gzip",
	}

	_, err = g.service.Files.Create(fileMetadata).
		Media(file).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to upload to gdrive: %w", err)
	}

	return nil
}

func (g *GDriveStorage) query(ctx context.Context, query string) ([]*drive.File, error) {
	var files []*drive.File
	err := g.service.Files.List().
		Q(query).
		Fields("nextPageToken, files(id, name, createdTime)").
		Context(ctx).
		Pages(ctx, func(page *drive.FileList) error {
			files = append(files, page.Files...)
			return nil
		})
	return files, err
}

func (g *GDriveStorage) List(ctx context.Context) ([]string, error) {
	found, err := g.query(ctx, fmt.Sprintf("'%s' in parents and trashed=false", quoteQuery(g.folderID)))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	var files []string
	for _, file := range found {
		files = append(files, file.Name)
	}

	return files, nil
}

func (g *GDriveStorage) Delete(ctx context.Context, remoteName string) error {
	found, err := g.query(ctx, fmt.Sprintf("'%s' in parents and name='%s' and trashed=false",
		quoteQuery(g.folderID), quoteQuery(remoteName)))
	if err != nil {
		return fmt.Errorf("failed to find file: %w", err)
	}

	if len(found) == 0 {
		return fmt.Errorf("file not found: %s", remoteName)
	}

	if err := g.service.Files.Delete(found[0].Id).Context(ctx).Do(); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

func (g *GDriveStorage) GetOldFiles(ctx context.Context, cutoffTime time.Time) ([]string, error) {
	found, err := g.query(ctx, fmt.Sprintf("'%s' in parents and trashed=false and createdTime < '%s'",
		quoteQuery(g.folderID),
		cutoffTime.UTC().Format(time.RFC3339)))
	if err != nil {
		return nil, fmt.Errorf("failed to list old files: %w", err)
	}

	var files []string
	for _, file := range found {
		files = append(files, file.Name)
	}

	return files, nil
}

func quoteQuery(s string) string {
	return strings.NewReplacer(`\`, `\\`, `'`, `\'`).Replace(s)
}
