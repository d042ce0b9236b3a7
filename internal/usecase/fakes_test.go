package usecase

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/semmidev/drupal-archive/internal/domain"
)

var nopLogger = zap.NewNop().Sugar()

// fakeRunner records commands and fails or reacts on the first rule whose
// substring the command contains.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	fail     map[string]error
	hooks    map[string]func(command string)
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fail: map[string]error{}, hooks: map[string]func(string){}}
}

func (r *fakeRunner) Run(_ context.Context, command string, _ time.Duration) (string, error) {
	r.mu.Lock()
	r.commands = append(r.commands, command)
	r.mu.Unlock()

	for substr, hook := range r.hooks {
		if strings.Contains(command, substr) {
			hook(command)
		}
	}
	for substr, err := range r.fail {
		if strings.Contains(command, substr) {
			return "", err
		}
	}
	return "", nil
}

func (r *fakeRunner) ran() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.commands...)
}

func commandFailure(command string, code int) error {
	return &domain.ExternalCommandError{Command: command, ExitCode: code, Output: "boom"}
}

type fakeChecker struct {
	err   error
	calls int
}

func (c *fakeChecker) Verify(context.Context) error {
	c.calls++
	return c.err
}

type fakeVerifier struct {
	err   error
	paths []string
}

func (v *fakeVerifier) Verify(path string) error {
	v.paths = append(v.paths, path)
	return v.err
}

// memStorage is an in-memory domain.Storage.
type memStorage struct {
	mu       sync.Mutex
	files    map[string]time.Time
	failWith error
	noAges   bool
	deleted  []string
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string]time.Time{}}
}

func (s *memStorage) Upload(_ context.Context, _ string, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWith != nil {
		return s.failWith
	}
	s.files[remoteName] = time.Now()
	return nil
}

func (s *memStorage) List(context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var names []string
	for name := range s.files {
		names = append(names, name)
	}
	return names, nil
}

func (s *memStorage) Delete(_ context.Context, remoteName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[remoteName]; !ok {
		return errors.New("not found")
	}
	delete(s.files, remoteName)
	s.deleted = append(s.deleted, remoteName)
	return nil
}

func (s *memStorage) GetOldFiles(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.noAges {
		return nil, errors.New("modification times not supported")
	}
	var old []string
	for name, modified := range s.files {
		if modified.Before(cutoff) {
			old = append(old, name)
		}
	}
	return old, nil
}

func (s *memStorage) GetPath(filename string) string {
	return "/var/backups/" + filename
}

func (s *memStorage) has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.files[name]
	return ok
}
