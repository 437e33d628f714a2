package wandkit

import (
	"time"

	"github.com/cshum/wandkit/module"
	"github.com/cshum/wandkit/pipeline"
	"go.uber.org/zap"
)

// Option App option
type Option func(app *App)

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(app *App) {
		if logger != nil {
			app.Logger = logger
		}
	}
}

// WithModule with primitive module option, defaults to the imagick module
func WithModule(m *module.Module) Option {
	return func(app *App) {
		app.Module = m
	}
}

// WithLoaders with loaders option
func WithLoaders(loaders ...Loader) Option {
	return func(app *App) {
		app.Loaders = append(app.Loaders, loaders...)
	}
}

// WithStorages with source image storages option
func WithStorages(storages ...Storage) Option {
	return func(app *App) {
		app.Storages = append(app.Storages, storages...)
	}
}

// WithResultStorages with result storages option
func WithResultStorages(storages ...Storage) Option {
	return func(app *App) {
		app.ResultStorages = append(app.ResultStorages, storages...)
	}
}

// WithRequestTimeout with request timeout option
func WithRequestTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.RequestTimeout = timeout
		}
	}
}

// WithLoadTimeout with load timeout option for loader and storage
func WithLoadTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.LoadTimeout = timeout
		}
	}
}

// WithSaveTimeout with save timeout option for storage
func WithSaveTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.SaveTimeout = timeout
		}
	}
}

// WithProcessTimeout with process timeout option
func WithProcessTimeout(timeout time.Duration) Option {
	return func(app *App) {
		if timeout > 0 {
			app.ProcessTimeout = timeout
		}
	}
}

// WithProcessConcurrency with maximum number of wands processed in parallel
func WithProcessConcurrency(concurrency int64) Option {
	return func(app *App) {
		if concurrency > 0 {
			app.ProcessConcurrency = concurrency
		}
	}
}

// WithCacheHeaderTTL with cache header TTL option
func WithCacheHeaderTTL(ttl time.Duration) Option {
	return func(app *App) {
		if ttl > 0 {
			app.CacheHeaderTTL = ttl
		}
	}
}

// WithCacheHeaderSWR with cache header stale-while-revalidate option
func WithCacheHeaderSWR(swr time.Duration) Option {
	return func(app *App) {
		if swr > 0 {
			app.CacheHeaderSWR = swr
		}
	}
}

// WithCacheHeaderNoCache with cache header no-cache option
func WithCacheHeaderNoCache(nocache bool) Option {
	return func(app *App) {
		app.CacheHeaderNoCache = nocache
	}
}

// WithUnsafe with unsafe option
func WithUnsafe(unsafe bool) Option {
	return func(app *App) {
		app.Unsafe = unsafe
	}
}

// WithSigner with URL signer option
func WithSigner(signer pipeline.Signer) Option {
	return func(app *App) {
		if signer != nil {
			app.Signer = signer
		}
	}
}

// WithStorageHasher with storage key hasher option
func WithStorageHasher(hasher pipeline.StorageHasher) Option {
	return func(app *App) {
		app.StorageHasher = hasher
	}
}

// WithResultStorageHasher with result storage key hasher option
func WithResultStorageHasher(hasher pipeline.ResultStorageHasher) Option {
	return func(app *App) {
		app.ResultStorageHasher = hasher
	}
}

// WithBasePathRedirect with base path redirect option
func WithBasePathRedirect(url string) Option {
	return func(app *App) {
		app.BasePathRedirect = url
	}
}

// WithModifiedTimeCheck with modified time check option,
// result storage hits older than the source image are ignored
func WithModifiedTimeCheck(enabled bool) Option {
	return func(app *App) {
		app.ModifiedTimeCheck = enabled
	}
}

// WithDisableErrorBody with disable error body option
func WithDisableErrorBody(disabled bool) Option {
	return func(app *App) {
		app.DisableErrorBody = disabled
	}
}

// WithDisableParamsEndpoint with disable params endpoint option
func WithDisableParamsEndpoint(disabled bool) Option {
	return func(app *App) {
		app.DisableParamsEndpoint = disabled
	}
}

// WithDebug with debug option
func WithDebug(debug bool) Option {
	return func(app *App) {
		app.Debug = debug
	}
}
