package services

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/spf13/afero"
)

const (
	// FilesDir is where raw uploads are kept inside the store.
	FilesDir = "trading_files"
	// FilesURLPrefix is the API path raw uploads are served from.
	FilesURLPrefix = "/api/files/"
)

var ErrInvalidStoredName = errors.New("invalid stored file name")

// FileStore keeps raw uploaded files as trading_files/<unixMillis>__<name>.
type FileStore struct {
	fs  afero.Fs
	now func() time.Time
}

// NewFileStore wraps fs, which is usually rooted at the configured storage dir.
func NewFileStore(fs afero.Fs) *FileStore {
	return &FileStore{fs: fs, now: time.Now}
}

// StoredFile describes a file written by Save.
type StoredFile struct {
	Name string
	Path string
	URL  string
}

// Save writes content under a timestamped key derived from fileName.
func (s *FileStore) Save(fileName string, content []byte) (*StoredFile, error) {
	name := fmt.Sprintf("%d__%s", s.now().UnixMilli(), fileName)
	if err := checkStoredName(name); err != nil {
		return nil, err
	}
	if err := s.fs.MkdirAll(FilesDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", FilesDir, err)
	}

	p := path.Join(FilesDir, name)
	if err := afero.WriteFile(s.fs, p, content, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", p, err)
	}
	return &StoredFile{Name: name, Path: p, URL: FilesURLPrefix + url.PathEscape(name)}, nil
}

// Open returns a stored file by name for reading.
func (s *FileStore) Open(name string) (afero.File, error) {
	if err := checkStoredName(name); err != nil {
		return nil, err
	}
	return s.fs.Open(path.Join(FilesDir, name))
}

// Remove deletes a stored file by name.
func (s *FileStore) Remove(name string) error {
	if err := checkStoredName(name); err != nil {
		return err
	}
	return s.fs.Remove(path.Join(FilesDir, name))
}

// NameFromURL recovers the stored name from a URL returned by Save.
func NameFromURL(fileURL string) (string, bool) {
	if !strings.HasPrefix(fileURL, FilesURLPrefix) {
		return "", false
	}
	name, err := url.PathUnescape(strings.TrimPrefix(fileURL, FilesURLPrefix))
	if err != nil || checkStoredName(name) != nil {
		return "", false
	}
	return name, true
}

func checkStoredName(name string) error {
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidStoredName, name)
	}
	return nil
}
