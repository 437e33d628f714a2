package wandkit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cshum/wandkit/magick"
	"github.com/cshum/wandkit/module"
	"github.com/cshum/wandkit/pipeline"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/sync/singleflight"
)

// Version wandkit version
const Version = "0.1.0"

// Loader load image from source
type Loader interface {
	Get(r *http.Request, image string) (*Blob, error)
}

// Storage load and save image
type Storage interface {
	Get(r *http.Request, image string) (*Blob, error)
	Put(ctx context.Context, image string, blob *Blob) error
	Delete(ctx context.Context, image string) error
	Stat(ctx context.Context, image string) (*Stat, error)
}

// App image operation HTTP handler running op chains on imagick wands
type App struct {
	Module                *module.Module
	Unsafe                bool
	Signer                pipeline.Signer
	StorageHasher         pipeline.StorageHasher
	ResultStorageHasher   pipeline.ResultStorageHasher
	BasePathRedirect      string
	Loaders               []Loader
	Storages              []Storage
	ResultStorages        []Storage
	RequestTimeout        time.Duration
	LoadTimeout           time.Duration
	SaveTimeout           time.Duration
	ProcessTimeout        time.Duration
	CacheHeaderTTL        time.Duration
	CacheHeaderSWR        time.Duration
	CacheHeaderNoCache    bool
	ProcessConcurrency    int64
	ModifiedTimeCheck     bool
	DisableErrorBody      bool
	DisableParamsEndpoint bool
	Logger                *zap.Logger
	Debug                 bool

	g    singleflight.Group
	sema *semaphore.Weighted
}

// New create new App
func New(options ...Option) *App {
	app := &App{
		Logger:         zap.NewNop(),
		RequestTimeout: time.Second * 30,
		LoadTimeout:    time.Second * 20,
		SaveTimeout:    time.Second * 20,
		ProcessTimeout: time.Second * 20,
		CacheHeaderTTL: time.Hour * 24 * 7,
		CacheHeaderSWR: time.Hour * 24,
	}
	for _, option := range options {
		option(app)
	}
	if app.Module == nil {
		app.Module = module.NewImagick(module.WithLogger(app.Logger))
	}
	if app.ProcessConcurrency > 0 {
		app.sema = semaphore.NewWeighted(app.ProcessConcurrency)
	}
	if app.Signer == nil {
		app.Signer = pipeline.NewDefaultSigner("")
	}
	if app.Debug {
		app.debugLog()
	}
	return app
}

// Startup initializes MagickWand, bridging its logging into the app logger
func (app *App) Startup(_ context.Context) error {
	verbosity := magick.LogLevelWarning
	if app.Debug {
		verbosity = magick.LogLevelDebug
	}
	magick.SetLogging(func(op string, level magick.LogLevel, message string) {
		switch level {
		case magick.LogLevelDebug:
			app.Logger.Debug(op, zap.String("log", message))
		case magick.LogLevelInfo:
			app.Logger.Info(op, zap.String("log", message))
		case magick.LogLevelWarning:
			app.Logger.Warn(op, zap.String("log", message))
		default:
			app.Logger.Error(op, zap.String("log", message))
		}
	}, verbosity)
	magick.Startup()
	return nil
}

// Shutdown releases MagickWand
func (app *App) Shutdown(_ context.Context) error {
	magick.Shutdown()
	return nil
}

// ServeHTTP implements http.Handler for op chain paths
func (app *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	path := r.URL.EscapedPath()
	if path == "/" || path == "" {
		if app.BasePathRedirect == "" {
			resJSON(w, json.RawMessage(fmt.Sprintf(
				`{"wandkit":{"version":"%s"}}`, Version,
			)))
		} else {
			http.Redirect(w, r, app.BasePathRedirect, http.StatusTemporaryRedirect)
		}
		return
	}
	if rest, ok := strings.CutPrefix(path, "/params/"); ok {
		if app.DisableParamsEndpoint {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		resJSONIndent(w, pipeline.Parse(rest))
		return
	}
	blob, err := app.Do(r, pipeline.Parse(path))
	if err == nil && blob != nil {
		err = blob.Err()
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		e := WrapError(err)
		if e.Code >= http.StatusInternalServerError {
			app.Logger.Warn("serve", zap.String("path", path), zap.Error(err))
		}
		if app.DisableErrorBody {
			w.WriteHeader(e.Code)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(e.Code)
		buf, _ := json.Marshal(e)
		_, _ = w.Write(buf)
		return
	}
	if isEmpty(blob) {
		return
	}
	w.Header().Set("Content-Type", blob.ContentType())
	reader, size, _ := blob.NewReader()
	setCacheHeaders(w, app.CacheHeaderTTL, app.CacheHeaderSWR, app.CacheHeaderNoCache)
	app.writeBody(w, r, http.StatusOK, reader, size)
}

func (app *App) writeBody(w http.ResponseWriter, r *http.Request, status int, reader io.ReadCloser, size int64) {
	defer func() {
		_ = reader.Close()
	}()
	w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
	w.WriteHeader(status)
	if r.Method != http.MethodHead {
		_, _ = io.Copy(w, reader)
	}
}

// Do executes the op chain of p, returning the exported image,
// or its JSON summary when p.Meta
func (app *App) Do(r *http.Request, p pipeline.Params) (blob *Blob, err error) {
	var ctx = DeferContext(r.Context())
	var cancel func()
	if app.RequestTimeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, app.RequestTimeout)
		Defer(ctx, cancel)
	}
	r = r.WithContext(ctx)
	if !(app.Unsafe && p.Unsafe) && app.Signer != nil && app.Signer.Sign(p.Path) != p.Hash {
		if app.Debug {
			app.Logger.Debug("sign-mismatch", zap.Any("params", p), zap.String("expected", app.Signer.Sign(p.Path)))
		}
		return nil, ErrSignatureMismatch
	}
	if p.Image == "" {
		return nil, ErrNotFound
	}
	if err = pipeline.Validate(app.Module, p.Ops); err != nil {
		return nil, err
	}
	var resultKey string
	if app.ResultStorageHasher != nil {
		resultKey = app.ResultStorageHasher.HashResult(p)
	} else {
		resultKey = p.Path
	}
	return app.suppress(ctx, "res:"+resultKey, func(ctx context.Context) (*Blob, error) {
		r := r.WithContext(ctx)
		if blob := app.loadResult(r, resultKey, p.Image); blob != nil {
			return blob, nil
		}
		if app.sema != nil {
			if err := app.sema.Acquire(ctx, 1); err != nil {
				app.Logger.Debug("acquire", zap.Error(err))
				return nil, err
			}
			defer app.sema.Release(1)
		}
		src, err := app.loadStorage(r, p.Image)
		if err != nil {
			app.Logger.Debug("load", zap.Any("params", p), zap.Error(err))
			return nil, err
		}
		if app.ProcessTimeout > 0 {
			var cancel func()
			ctx, cancel = context.WithTimeout(ctx, app.ProcessTimeout)
			Defer(ctx, cancel)
		}
		blob, err := app.process(ctx, src, p)
		if err != nil {
			app.Logger.Warn("process", zap.Any("params", p), zap.Error(err))
			return nil, err
		}
		if app.Debug {
			app.Logger.Debug("processed", zap.Any("params", p), zap.String("content_type", blob.ContentType()))
		}
		if len(app.ResultStorages) > 0 {
			app.save(DetachContext(ctx), nil, app.ResultStorages, resultKey, blob)
		}
		return blob, nil
	})
}

// process decodes src into a wand, runs the chain and exports the result
func (app *App) process(ctx context.Context, src *Blob, p pipeline.Params) (*Blob, error) {
	if len(p.Ops) == 0 && !p.Meta {
		return src, nil
	}
	buf, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	v, err := app.Module.Call(ctx, "packet->imagick", buf)
	if err != nil {
		return nil, err
	}
	w, ok := v.(*magick.Wand)
	if !ok {
		return nil, ErrInternal
	}
	defer w.Release()
	if err = pipeline.Run(ctx, app.Module, w, p.Ops); err != nil {
		return nil, err
	}
	if p.Meta {
		info, err := w.Info(true)
		if err != nil {
			return nil, err
		}
		return NewBlobFromJSONMarshal(info), nil
	}
	v, err = app.Module.Call(ctx, "imagick->packet", w)
	if err != nil {
		return nil, err
	}
	out, ok := v.([]byte)
	if !ok {
		return nil, ErrInternal
	}
	return NewBlobFromBytes(out), nil
}

func (app *App) storageKey(image string) string {
	if app.StorageHasher != nil {
		return app.StorageHasher.Hash(image)
	}
	return image
}

func (app *App) loadStorage(r *http.Request, image string) (*Blob, error) {
	return app.suppress(r.Context(), "img:"+image, func(ctx context.Context) (*Blob, error) {
		r := r.WithContext(ctx)
		key := app.storageKey(image)
		blob, origin, err := app.load(r, storageLoaders(app.Storages), key)
		if err == nil && !isEmpty(blob) {
			return blob, nil
		}
		blob, _, err = app.load(r, app.Loaders, image)
		if err != nil {
			return nil, err
		}
		if len(app.Storages) > 0 {
			app.save(ctx, origin, app.Storages, key, blob)
		}
		return blob, nil
	})
}

func (app *App) loadResult(r *http.Request, resultKey, image string) *Blob {
	if len(app.ResultStorages) == 0 {
		return nil
	}
	blob, origin, err := app.load(r, storageLoaders(app.ResultStorages), resultKey)
	if err != nil || isEmpty(blob) {
		return nil
	}
	if !app.ModifiedTimeCheck || origin == nil {
		return blob
	}
	ctx := r.Context()
	resStat, err := origin.Stat(ctx, resultKey)
	if resStat == nil || err != nil {
		return nil
	}
	srcStat, err := app.storageStat(ctx, app.storageKey(image))
	if srcStat == nil || err != nil {
		return nil
	}
	if resStat.ModifiedTime.Before(srcStat.ModifiedTime) {
		return nil
	}
	return blob
}

func (app *App) load(r *http.Request, loaders []Loader, key string) (blob *Blob, origin Storage, err error) {
	if len(loaders) == 0 {
		return nil, nil, ErrNotFound
	}
	if key == "" {
		return nil, nil, ErrNotFound
	}
	var ctx = r.Context()
	if app.LoadTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, app.LoadTimeout)
		Defer(ctx, cancel)
		r = r.WithContext(ctx)
	}
	for _, loader := range loaders {
		b, e := loader.Get(r, key)
		if b != nil && e == nil {
			e = b.Err()
		}
		if e == nil && !isEmpty(b) {
			blob, err = b, nil
			origin, _ = loader.(Storage)
			break
		}
		err = e
	}
	if errors.Is(err, ErrPass) || (err == nil && isEmpty(blob)) {
		// pass till the end means not found
		err = ErrNotFound
	}
	if app.Debug {
		if err == nil {
			app.Logger.Debug("loaded", zap.String("key", key))
		} else {
			app.Logger.Debug("load", zap.String("key", key), zap.Error(err))
		}
	}
	return
}

func (app *App) storageStat(ctx context.Context, key string) (stat *Stat, err error) {
	for _, storage := range app.Storages {
		if stat, err = storage.Stat(ctx, key); stat != nil && err == nil {
			return
		}
	}
	return
}

func (app *App) save(ctx context.Context, origin Storage, storages []Storage, key string, blob *Blob) {
	if app.SaveTimeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, app.SaveTimeout)
		defer cancel()
	}
	var wg sync.WaitGroup
	for _, storage := range storages {
		if storage == origin {
			// loaded from the same store, no need save again
			continue
		}
		wg.Add(1)
		go func(storage Storage) {
			defer wg.Done()
			if err := storage.Put(ctx, key, blob); err != nil {
				app.Logger.Warn("save", zap.String("key", key), zap.Error(err))
			} else if app.Debug {
				app.Logger.Debug("saved", zap.String("key", key))
			}
		}(storage)
	}
	wg.Wait()
}

type suppressKey struct {
	Key string
}

func (app *App) suppress(
	ctx context.Context, key string, fn func(ctx context.Context) (*Blob, error),
) (*Blob, error) {
	if isAcquired, ok := ctx.Value(suppressKey{key}).(bool); ok && isAcquired {
		// resolve deadlock
		return fn(ctx)
	}
	isCanceled := false
	ch := app.g.DoChan(key, func() (v any, err error) {
		v, err = fn(context.WithValue(ctx, suppressKey{key}, true))
		if errors.Is(err, context.Canceled) {
			app.g.Forget(key)
			isCanceled = true
		}
		return v, err
	})
	select {
	case res := <-ch:
		if !isCanceled && errors.Is(res.Err, context.Canceled) {
			// the leading caller was canceled, retry on our own context
			return app.suppress(ctx, key, fn)
		}
		if blob, ok := res.Val.(*Blob); ok {
			return blob, res.Err
		}
		return nil, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (app *App) debugLog() {
	var loaders, storages, resultStorages []string
	for _, v := range app.Loaders {
		loaders = append(loaders, getType(v))
	}
	for _, v := range app.Storages {
		storages = append(storages, getType(v))
	}
	for _, v := range app.ResultStorages {
		resultStorages = append(resultStorages, getType(v))
	}
	app.Logger.Debug("wandkit",
		zap.String("version", Version),
		zap.Bool("unsafe", app.Unsafe),
		zap.Duration("request_timeout", app.RequestTimeout),
		zap.Duration("load_timeout", app.LoadTimeout),
		zap.Duration("process_timeout", app.ProcessTimeout),
		zap.Duration("save_timeout", app.SaveTimeout),
		zap.Int64("process_concurrency", app.ProcessConcurrency),
		zap.Duration("cache_header_ttl", app.CacheHeaderTTL),
		zap.Strings("loaders", loaders),
		zap.Strings("storages", storages),
		zap.Strings("result_storages", resultStorages),
		zap.Strings("prims", app.Module.Names()),
	)
}

func setCacheHeaders(w http.ResponseWriter, ttl, swr time.Duration, noCache bool) {
	if noCache {
		ttl = 0
	}
	expires := time.Now().Add(ttl)
	w.Header().Add("Expires", strings.Replace(expires.Format(time.RFC1123), "UTC", "GMT", -1))
	w.Header().Add("Cache-Control", getCacheControl(ttl, swr))
}

func getCacheControl(ttl, swr time.Duration) string {
	if ttl <= 0 {
		return "private, no-cache, no-store, must-revalidate"
	}
	var ttlSec = int64(ttl.Seconds())
	var val = fmt.Sprintf("public, s-maxage=%d, max-age=%d, no-transform", ttlSec, ttlSec)
	if swr > 0 && swr < ttl {
		val += fmt.Sprintf(", stale-while-revalidate=%d", int64(swr.Seconds()))
	}
	return val
}

func resJSON(w http.ResponseWriter, v any) {
	buf, _ := json.Marshal(v)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

func resJSONIndent(w http.ResponseWriter, v any) {
	buf, _ := json.MarshalIndent(v, "", "  ")
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Length", strconv.Itoa(len(buf)))
	_, _ = w.Write(buf)
}

func getType(v any) string {
	if t := reflect.TypeOf(v); t.Kind() == reflect.Ptr {
		return t.Elem().Name()
	}
	return reflect.TypeOf(v).Name()
}

func storageLoaders(storages []Storage) (loaders []Loader) {
	for _, storage := range storages {
		loaders = append(loaders, storage)
	}
	return
}
