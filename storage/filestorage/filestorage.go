// Package filestorage stores source images and results on the local filesystem
package filestorage

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/pipeline"
	"github.com/cshum/wandkit/storage"
)

var dotFileRegex = regexp.MustCompile("/\\.")

// FileStorage file system storage
type FileStorage struct {
	BaseDir         string
	PathPrefix      string
	Blacklists      []*regexp.Regexp
	MkdirPermission os.FileMode
	WritePermission os.FileMode
	SaveErrIfExists bool
	SafeChars       string
	Expiration      time.Duration

	safeChars map[byte]bool
}

// New creates FileStorage rooted at baseDir
func New(baseDir string, options ...Option) *FileStorage {
	s := &FileStorage{
		BaseDir:         baseDir,
		PathPrefix:      "/",
		Blacklists:      []*regexp.Regexp{dotFileRegex},
		MkdirPermission: 0755,
		WritePermission: 0666,

		safeChars: map[byte]bool{},
	}
	for _, option := range options {
		option(s)
	}
	for _, c := range s.SafeChars {
		s.safeChars[byte(c)] = true
	}
	return s
}

func (s *FileStorage) escapeByte(c byte) bool {
	return pipeline.DefaultEscapeByte(c) && !s.safeChars[c]
}

// Path maps image key to file path, false when the key is not served
func (s *FileStorage) Path(image string) (string, bool) {
	image = "/" + pipeline.Normalize("/"+image, s.escapeByte)
	for _, blacklist := range s.Blacklists {
		if blacklist.MatchString(image) {
			return "", false
		}
	}
	if !strings.HasPrefix(image, s.PathPrefix) {
		return "", false
	}
	return filepath.Join(s.BaseDir, strings.TrimPrefix(image, s.PathPrefix)), true
}

// Get implements wandkit.Storage interface
func (s *FileStorage) Get(_ *http.Request, image string) (blob *wandkit.Blob, err error) {
	done := storage.Track("file", "get")
	defer func() { done(err) }()
	image, ok := s.Path(image)
	if !ok {
		return nil, wandkit.ErrPass
	}
	stats, err := os.Stat(image)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wandkit.ErrNotFound
		}
		return nil, err
	}
	if s.Expiration > 0 && time.Since(stats.ModTime()) > s.Expiration {
		return nil, wandkit.ErrExpired
	}
	blob = wandkit.NewBlobFromFile(image)
	blob.Stat = statOf(stats)
	return blob, nil
}

// Put implements wandkit.Storage interface
func (s *FileStorage) Put(_ context.Context, image string, blob *wandkit.Blob) (err error) {
	done := storage.Track("file", "put")
	defer func() { done(err) }()
	image, ok := s.Path(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	if err = os.MkdirAll(filepath.Dir(image), s.MkdirPermission); err != nil {
		return
	}
	buf, err := blob.ReadAll()
	if err != nil {
		return
	}
	flag := os.O_RDWR | os.O_CREATE | os.O_TRUNC
	if s.SaveErrIfExists {
		flag = os.O_RDWR | os.O_CREATE | os.O_EXCL
	}
	w, err := os.OpenFile(image, flag, s.WritePermission)
	if err != nil {
		return
	}
	defer func() {
		if cerr := w.Close(); err == nil {
			err = cerr
		}
	}()
	_, err = w.Write(buf)
	return
}

// Delete implements wandkit.Storage interface
func (s *FileStorage) Delete(_ context.Context, image string) (err error) {
	done := storage.Track("file", "delete")
	defer func() { done(err) }()
	image, ok := s.Path(image)
	if !ok {
		return wandkit.ErrInvalid
	}
	return os.Remove(image)
}

// Stat implements wandkit.Storage interface
func (s *FileStorage) Stat(_ context.Context, image string) (*wandkit.Stat, error) {
	image, ok := s.Path(image)
	if !ok {
		return nil, wandkit.ErrInvalid
	}
	stats, err := os.Stat(image)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, wandkit.ErrNotFound
		}
		return nil, err
	}
	return statOf(stats), nil
}

func statOf(stats os.FileInfo) *wandkit.Stat {
	return &wandkit.Stat{
		Size:         stats.Size(),
		ModifiedTime: stats.ModTime(),
	}
}
