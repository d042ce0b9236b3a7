package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/semmidev/drupal-archive/internal/domain"
)

const archiveTimeLayout = "20060102_150405"

type Archiver interface {
	Execute(ctx context.Context, job domain.ArchiveJobSpec) (string, error)
}

type LocalStorage interface {
	domain.Storage
	GetPath(filename string) string
}

// ScheduledBackup dumps a site into local storage and publishes the result.
type ScheduledBackup struct {
	archiver  Archiver
	local     LocalStorage
	publisher *Publisher
	logger    Logger
	now       func() time.Time
}

func NewScheduledBackup(archiver Archiver, local LocalStorage, publisher *Publisher, logger Logger) *ScheduledBackup {
	return &ScheduledBackup{
		archiver:  archiver,
		local:     local,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (uc *ScheduledBackup) Execute(ctx context.Context, job domain.ScheduledDump) error {
	filename := ArchiveName(job.Name, uc.now())
	uc.logger.Infof("[%s] Starting scheduled dump of %s", job.Name, job.Source)

	path, err := uc.archiver.Execute(ctx, domain.ArchiveJobSpec{
		Source:      job.Source,
		Destination: uc.local.GetPath(filename),
		UseDrush:    job.UseDrush,
		Verify:      true,
	})
	if err != nil {
		return fmt.Errorf("dump %s: %w", job.Name, err)
	}

	if uc.publisher != nil && uc.publisher.Targets() > 0 {
		if err := uc.publisher.Publish(ctx, path, filepath.Base(path)); err != nil {
			uc.logger.Warnf("[%s] Archive kept locally, some uploads failed: %v", job.Name, err)
		}
	}

	uc.logger.Infof("[%s] Scheduled dump stored at %s", job.Name, path)
	return nil
}

// ArchiveName is the file name of a scheduled archive taken at t.
func ArchiveName(name string, t time.Time) string {
	return fmt.Sprintf("%s_%s.tar.gz", name, t.Format(archiveTimeLayout))
}
