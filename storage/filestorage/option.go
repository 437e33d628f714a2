package filestorage

import (
	"os"
	"regexp"
	"strconv"
	"time"

	"github.com/cshum/wandkit/storage"
)

// Option FileStorage option
type Option func(h *FileStorage)

// WithPathPrefix serves only image keys under prefix
func WithPathPrefix(prefix string) Option {
	return func(s *FileStorage) {
		if prefix != "" {
			s.PathPrefix = storage.CleanDir(prefix)
		}
	}
}

// WithBlacklist rejects image keys matching blacklist
func WithBlacklist(blacklist *regexp.Regexp) Option {
	return func(s *FileStorage) {
		if blacklist != nil {
			s.Blacklists = append(s.Blacklists, blacklist)
		}
	}
}

// WithMkdirPermission with octal directory permission e.g. 0755
func WithMkdirPermission(perm string) Option {
	return func(h *FileStorage) {
		if perm != "" {
			if fm, err := strconv.ParseUint(perm, 0, 32); err == nil {
				h.MkdirPermission = os.FileMode(fm)
			}
		}
	}
}

// WithWritePermission with octal file permission e.g. 0644
func WithWritePermission(perm string) Option {
	return func(h *FileStorage) {
		if perm != "" {
			if fm, err := strconv.ParseUint(perm, 0, 32); err == nil {
				h.WritePermission = os.FileMode(fm)
			}
		}
	}
}

// WithSaveErrIfExists fails Put when the file exists
func WithSaveErrIfExists(saveErrIfExists bool) Option {
	return func(h *FileStorage) {
		h.SaveErrIfExists = saveErrIfExists
	}
}

// WithSafeChars with chars kept unescaped in file names
func WithSafeChars(chars string) Option {
	return func(h *FileStorage) {
		if chars != "" {
			h.SafeChars = chars
		}
	}
}

// WithExpiration files older than exp are treated as expired
func WithExpiration(exp time.Duration) Option {
	return func(h *FileStorage) {
		if exp > 0 {
			h.Expiration = exp
		}
	}
}
