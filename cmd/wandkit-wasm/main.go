// Command wandkit-wasm runs a WASI guest with the imagick host module installed
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/cshum/wandkit"
	"github.com/cshum/wandkit/magick"
	"github.com/cshum/wandkit/module"
	"github.com/cshum/wandkit/wasmhost"
	"github.com/peterbourgon/ff/v3"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

type options struct {
	Dir    string
	Args   []string
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *zap.Logger
}

func main() {
	var (
		fs      = flag.NewFlagSet("wandkit-wasm", flag.ExitOnError)
		debug   = fs.Bool("debug", false, "Debug mode")
		version = fs.Bool("version", false, "wandkit version")
		dir     = fs.String("dir", ".", "Host directory mounted as the guest root")
	)
	if err := ff.Parse(fs, os.Args[1:], ff.WithEnvVarPrefix("WANDKIT_WASM")); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *version {
		fmt.Println(wandkit.Version)
		return
	}
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "usage: wandkit-wasm [flags] guest.wasm [args...]")
		os.Exit(2)
	}
	logger, err := newLogger(*debug)
	if err != nil {
		panic(err)
	}
	bin, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		logger.Fatal("read", zap.Error(err))
	}

	magick.Startup()
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code, err := run(ctx, bin, options{
		Dir:    *dir,
		Args:   fs.Args(),
		Stdin:  os.Stdin,
		Stdout: os.Stdout,
		Stderr: os.Stderr,
		Logger: logger,
	})
	cancel()
	magick.Shutdown()
	if err != nil {
		logger.Error("run", zap.Error(err))
		if code == 0 {
			code = 1
		}
	}
	os.Exit(int(code))
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newModule confines the file primitives to the directory mounted as the
// guest root, disabling them when nothing is mounted
func newModule(opts options) *module.Module {
	files := module.WithFileRoot(opts.Dir)
	if opts.Dir == "" {
		files = module.WithDisableFiles(true)
	}
	return module.NewImagick(module.WithLogger(opts.Logger), files)
}

// run instantiates the guest and its _start, returning the guest exit code
func run(ctx context.Context, bin []byte, opts options) (uint32, error) {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	r := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCloseOnContextDone(true))
	defer r.Close(ctx)

	wasi_snapshot_preview1.MustInstantiate(ctx, r)

	host := wasmhost.New(
		wasmhost.WithLogger(opts.Logger),
		wasmhost.WithModule(newModule(opts)),
	)
	defer host.Close()
	if _, err := host.Instantiate(ctx, r); err != nil {
		return 0, err
	}

	compiled, err := r.CompileModule(ctx, bin)
	if err != nil {
		return 0, err
	}
	cfg := wazero.NewModuleConfig().
		WithArgs(opts.Args...).
		WithSysWalltime().
		WithSysNanotime()
	if opts.Stdin != nil {
		cfg = cfg.WithStdin(opts.Stdin)
	}
	if opts.Stdout != nil {
		cfg = cfg.WithStdout(opts.Stdout)
	}
	if opts.Stderr != nil {
		cfg = cfg.WithStderr(opts.Stderr)
	}
	if opts.Dir != "" {
		cfg = cfg.WithFSConfig(wazero.NewFSConfig().WithDirMount(opts.Dir, "/"))
	}
	mod, err := r.InstantiateModule(ctx, compiled, cfg)
	if mod != nil {
		host.Forget(mod)
	}
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		if exitErr.ExitCode() == 0 {
			return 0, nil
		}
		return exitErr.ExitCode(), err
	}
	if err != nil {
		return 0, err
	}
	opts.Logger.Debug("exit", zap.Int("handles", host.Handles()))
	return 0, nil
}
