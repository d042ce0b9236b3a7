package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/semmidev/drupal-archive/internal/domain"
)

type UploadTarget struct {
	Name    string
	Storage domain.Storage
}

// Publisher ships a finished archive to every configured target.
type Publisher struct {
	targets []UploadTarget
	logger  Logger
}

func NewPublisher(targets []UploadTarget, logger Logger) *Publisher {
	return &Publisher{targets: targets, logger: logger}
}

func (p *Publisher) Targets() int {
	return len(p.targets)
}

// Publish uploads concurrently. Each failure is logged and the joined
// failures are returned once every upload has finished.
func (p *Publisher) Publish(ctx context.Context, filePath, filename string) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []error
	)

	for _, target := range p.targets {
		wg.Add(1)
		go func(t UploadTarget) {
			defer wg.Done()

			start := time.Now()
			p.logger.Infof("[%s] Uploading to %s...", filename, t.Name)
			if err := t.Storage.Upload(ctx, filePath, filename); err != nil {
				p.logger.Errorf("[%s] Failed to upload to %s: %v", filename, t.Name, err)
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", t.Name, err))
				mu.Unlock()
				return
			}
			p.logger.Infof("[%s] Uploaded to %s in %s", filename, t.Name, time.Since(start).Round(time.Millisecond))
		}(target)
	}

	wg.Wait()
	return errors.Join(errs...)
}
