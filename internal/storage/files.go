package storage

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
)

// FileStorage removes uploaded files that are no longer referenced. Deletion
// is best-effort: callers log the returned error and move on, the owning
// record mutation has already committed.
type FileStorage interface {
	DeleteFiles(ctx context.Context, urls []string) error
}

// DiskStorage serves uploads from a local directory; image URLs are paths
// under the public prefix (e.g. /uploads/ab12.png).
type DiskStorage struct {
	root   string
	prefix string
	log    *logrus.Logger
}

func NewDiskStorage(root, prefix string, log *logrus.Logger) *DiskStorage {
	if prefix == "" {
		prefix = "/uploads/"
	}
	return &DiskStorage{root: root, prefix: prefix, log: log}
}

func (s *DiskStorage) DeleteFiles(ctx context.Context, urls []string) error {
	var firstErr error
	for _, url := range urls {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		name, ok := s.localName(url)
		if !ok {
			s.log.WithField("url", url).Warn("skipping file outside storage root")
			continue
		}

		if err := os.Remove(filepath.Join(s.root, name)); err != nil && !os.IsNotExist(err) {
			s.log.WithField("url", url).WithError(err).Warn("file deletion failed")
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// localName maps a public URL back to a file name inside the storage root,
// rejecting anything that escapes it.
func (s *DiskStorage) localName(url string) (string, bool) {
	if !strings.HasPrefix(url, s.prefix) {
		return "", false
	}
	name := filepath.Clean(strings.TrimPrefix(url, s.prefix))
	if name == "." || name == ".." || strings.HasPrefix(name, "..") || filepath.IsAbs(name) {
		return "", false
	}
	return name, true
}
