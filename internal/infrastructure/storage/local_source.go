package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/meritledger/backend/internal/application/reconciliation"
	"github.com/meritledger/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// LocalDocumentSource reads the inbox from a directory and moves processed
// files into sibling archive and failed directories
type LocalDocumentSource struct {
	inbox   string
	archive string
	failed  string
	logger  *zap.Logger
	now     func() time.Time
}

// NewLocalDocumentSource creates the three directories if needed
func NewLocalDocumentSource(cfg config.BatchConfig, logger *zap.Logger) (*LocalDocumentSource, error) {
	s := &LocalDocumentSource{
		inbox:   cfg.InboxDir,
		archive: cfg.ArchiveDir,
		failed:  cfg.FailedDir,
		logger:  logger,
		now:     time.Now,
	}
	for _, dir := range []string{s.inbox, s.archive, s.failed} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return s, nil
}

// List returns the supported files directly inside the inbox, sorted by name
func (s *LocalDocumentSource) List(_ context.Context) ([]reconciliation.SourceFile, error) {
	entries, err := os.ReadDir(s.inbox)
	if err != nil {
		return nil, err
	}
	files := make([]reconciliation.SourceFile, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !IsSupported(e.Name()) {
			continue
		}
		files = append(files, reconciliation.SourceFile{
			Key:  filepath.Join(s.inbox, e.Name()),
			Name: e.Name(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// Read returns the file content
func (s *LocalDocumentSource) Read(_ context.Context, key string) ([]byte, error) {
	return os.ReadFile(key)
}

// Archive moves a processed file to the archive directory
func (s *LocalDocumentSource) Archive(_ context.Context, key string) error {
	return s.move(key, s.archive)
}

// Fail moves a rejected file to the failed directory
func (s *LocalDocumentSource) Fail(_ context.Context, key string) error {
	return s.move(key, s.failed)
}

func (s *LocalDocumentSource) move(key, dir string) error {
	name := filepath.Base(key)
	dest := filepath.Join(dir, name)
	if _, err := os.Stat(dest); err == nil {
		dest = filepath.Join(dir, stampedName(name, s.now()))
	} else if !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	if err := os.Rename(key, dest); err != nil {
		return fmt.Errorf("move %s: %w", key, err)
	}
	s.logger.Debug("Moved inbox file", zap.String("from", key), zap.String("to", dest))
	return nil
}

var _ reconciliation.DocumentSource = (*LocalDocumentSource)(nil)
