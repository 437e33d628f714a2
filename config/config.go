// Package config builds the wandkit App and Server from flags, environment variables and .env file
package config

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"flag"
	"fmt"
	"hash"
	"runtime"
	"strings"
	"time"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/metrics/prometheusmetrics"
	"github.com/cshum/wandkit/pipeline"
	"github.com/cshum/wandkit/server"
	"github.com/peterbourgon/ff/v3"
	"go.uber.org/zap"
)

// NewApp registers App flags on fs and returns the App configured by options.
// cb parses the flags and returns the logger.
func NewApp(fs *flag.FlagSet, cb func() (*zap.Logger, bool), options ...Option) *wandkit.App {
	var (
		secret = fs.String("wandkit-secret", "",
			"Secret key for signing wandkit URL")
		unsafe = fs.Bool("wandkit-unsafe", false,
			"Unsafe wandkit that does not require URL signature. Prone to URL tampering")
		signerType = fs.String("wandkit-signer-type", "sha1",
			"URL signature hasher type: sha1, sha256, sha512")
		signerTruncate = fs.Int("wandkit-signer-truncate", 0,
			"URL signature truncate at length")
		requestTimeout = fs.Duration("wandkit-request-timeout",
			time.Second*30, "Timeout for performing wandkit request")
		loadTimeout = fs.Duration("wandkit-load-timeout",
			time.Second*20, "Timeout for loader and storage request, should be smaller than wandkit-request-timeout")
		saveTimeout = fs.Duration("wandkit-save-timeout",
			time.Second*20, "Timeout for saving image to storages")
		processTimeout = fs.Duration("wandkit-process-timeout",
			time.Second*20, "Timeout for running the op chain")
		processConcurrency = fs.Int64("wandkit-process-concurrency", -1,
			"Maximum number of wands processed in parallel. Set -1 for no limit")
		basePathRedirect = fs.String("wandkit-base-path-redirect", "",
			"URL to redirect for wandkit / base path e.g. https://www.google.com")
		cacheHeaderTTL = fs.Duration("wandkit-cache-header-ttl", time.Hour*24*7,
			"HTTP Cache-Control header TTL for successful image response")
		cacheHeaderSWR = fs.Duration("wandkit-cache-header-swr", time.Hour*24,
			"HTTP Cache-Control header stale-while-revalidate for successful image response")
		cacheHeaderNoCache = fs.Bool("wandkit-cache-header-no-cache", false,
			"HTTP Cache-Control header no-cache for successful image response")
		modifiedTimeCheck = fs.Bool("wandkit-modified-time-check", false,
			"Check modified time of result image against the source image. This eliminates stale result but require more lookups")
		disableErrorBody = fs.Bool("wandkit-disable-error-body", false,
			"Disable response body on error")
		disableParamsEndpoint = fs.Bool("wandkit-disable-params-endpoint", false,
			"Disable /params endpoint")
		storagePathStyle = fs.String("wandkit-storage-path-style", "original",
			"Storage path style: original, digest")
		resultStoragePathStyle = fs.String("wandkit-result-storage-path-style", "original",
			"Result storage path style: original, digest, suffix")
	)

	appOptions, logger, isDebug := applyOptions(fs, cb, options...)

	var alg func() hash.Hash
	switch strings.ToLower(*signerType) {
	case "sha256":
		alg = sha256.New
	case "sha512":
		alg = sha512.New
	default:
		alg = sha1.New
	}

	return wandkit.New(append(appOptions,
		wandkit.WithSigner(pipeline.NewHMACSigner(alg, *signerTruncate, *secret)),
		wandkit.WithStorageHasher(storageHasher(*storagePathStyle)),
		wandkit.WithResultStorageHasher(resultStorageHasher(*resultStoragePathStyle)),
		wandkit.WithBasePathRedirect(*basePathRedirect),
		wandkit.WithRequestTimeout(*requestTimeout),
		wandkit.WithLoadTimeout(*loadTimeout),
		wandkit.WithSaveTimeout(*saveTimeout),
		wandkit.WithProcessTimeout(*processTimeout),
		wandkit.WithProcessConcurrency(*processConcurrency),
		wandkit.WithCacheHeaderTTL(*cacheHeaderTTL),
		wandkit.WithCacheHeaderSWR(*cacheHeaderSWR),
		wandkit.WithCacheHeaderNoCache(*cacheHeaderNoCache),
		wandkit.WithModifiedTimeCheck(*modifiedTimeCheck),
		wandkit.WithDisableErrorBody(*disableErrorBody),
		wandkit.WithDisableParamsEndpoint(*disableParamsEndpoint),
		wandkit.WithUnsafe(*unsafe),
		wandkit.WithLogger(logger),
		wandkit.WithDebug(isDebug),
	)...)
}

func storageHasher(style string) pipeline.StorageHasher {
	if style == "digest" {
		return pipeline.DigestStorageHasher
	}
	return nil
}

func resultStorageHasher(style string) pipeline.ResultStorageHasher {
	switch style {
	case "digest":
		return pipeline.DigestResultStorageHasher
	case "suffix":
		return pipeline.SuffixResultStorageHasher
	}
	return nil
}

// CreateServer parses args, environment variables and config file into a Server.
// Returns nil when -version is set.
func CreateServer(args []string, options ...Option) (srv *server.Server) {
	var (
		fs     = flag.NewFlagSet("wandkit", flag.ExitOnError)
		logger *zap.Logger
		err    error

		debug        = fs.Bool("debug", false, "Debug mode")
		version      = fs.Bool("version", false, "wandkit version")
		port         = fs.Int("port", 8000, "Server port")
		goMaxProcess = fs.Int("gomaxprocs", 0, "GOMAXPROCS")

		_ = fs.String("config", ".env", "Retrieve configuration from the given file")

		bind = fs.String("bind", "",
			"Server address and port to bind e.g. myhost:8888. This overrides server address and port config")
		serverAddress = fs.String("server-address", "",
			"Server address")
		serverPathPrefix = fs.String("server-path-prefix", "",
			"Server path prefix")
		serverCORS = fs.Bool("server-cors", false,
			"Enable CORS")
		serverStripQueryString = fs.Bool("server-strip-query-string", false,
			"Enable strip query string redirection")
		serverAccessLog = fs.Bool("server-access-log", false,
			"Enable server access log")
		serverCertFile = fs.String("server-cert-file", "",
			"TLS certificate file, serves HTTPS along with server-key-file")
		serverKeyFile = fs.String("server-key-file", "",
			"TLS key file")
		serverStartupTimeout = fs.Duration("server-startup-timeout", time.Second*10,
			"Timeout for app and metrics startup")
		serverShutdownTimeout = fs.Duration("server-shutdown-timeout", time.Second*10,
			"Timeout for graceful shutdown")
		sentryDsn = fs.String("sentry-dsn", "",
			"Sentry DSN, errors logged are reported to Sentry if set")

		prometheusHost = fs.String("prometheus-host", "",
			"Prometheus metrics listener host")
		prometheusPort = fs.Int("prometheus-port", 0,
			"Prometheus metrics listener port. Enable Prometheus metrics only if this value present")
		prometheusPath = fs.String("prometheus-path", "/metrics",
			"Prometheus metrics path")
	)

	options = append(append([]Option{withFileSystem}, options...), withHTTPLoader)

	app := NewApp(fs, func() (*zap.Logger, bool) {
		if err = ff.Parse(fs, args,
			ff.WithEnvVars(),
			ff.WithConfigFileFlag("config"),
			ff.WithIgnoreUndefined(true),
			ff.WithAllowMissingConfigFile(true),
			ff.WithConfigFileParser(ff.EnvParser),
		); err != nil {
			panic(err)
		}
		if *debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			panic(err)
		}
		return logger, *debug
	}, options...)

	if *version {
		fmt.Println(wandkit.Version)
		return
	}

	if *goMaxProcess > 0 {
		logger.Debug("GOMAXPROCS", zap.Int("count", *goMaxProcess))
		runtime.GOMAXPROCS(*goMaxProcess)
	}

	var metrics server.Metrics
	if *prometheusPort > 0 {
		metrics = prometheusmetrics.New(
			prometheusmetrics.WithHost(*prometheusHost),
			prometheusmetrics.WithPort(*prometheusPort),
			prometheusmetrics.WithPath(*prometheusPath),
			prometheusmetrics.WithLogger(logger),
		)
	}

	return server.New(app,
		server.WithAddr(*bind),
		server.WithAddress(*serverAddress),
		server.WithPort(*port),
		server.WithPathPrefix(*serverPathPrefix),
		server.WithCORS(*serverCORS),
		server.WithStripQueryString(*serverStripQueryString),
		server.WithAccessLog(*serverAccessLog),
		server.WithCertFile(*serverCertFile),
		server.WithKeyFile(*serverKeyFile),
		server.WithStartupTimeout(*serverStartupTimeout),
		server.WithShutdownTimeout(*serverShutdownTimeout),
		server.WithSentry(*sentryDsn),
		server.WithMetrics(metrics),
		server.WithLogger(logger),
		server.WithDebug(*debug),
	)
}
