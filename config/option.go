package config

import (
	"flag"

	"github.com/cshum/wandkit"
	"go.uber.org/zap"
)

// Option flag based config option.
// Flags are registered on fs, cb parses them and yields the logger,
// so flag values are only read after cb returns.
type Option func(fs *flag.FlagSet, cb func() (logger *zap.Logger, isDebug bool)) wandkit.Option

// applyOptions resolves options last to first, so that the first option's
// App option is applied first
func applyOptions(
	fs *flag.FlagSet, cb func() (*zap.Logger, bool), options ...Option,
) (appOptions []wandkit.Option, logger *zap.Logger, isDebug bool) {
	if len(options) == 0 {
		logger, isDebug = cb()
		return
	}
	var last = len(options) - 1
	if options[last] == nil {
		return applyOptions(fs, cb, options[:last]...)
	}
	var called bool
	appOption := options[last](fs, func() (*zap.Logger, bool) {
		appOptions, logger, isDebug = applyOptions(fs, cb, options[:last]...)
		called = true
		return logger, isDebug
	})
	if !called {
		appOptions, logger, isDebug = applyOptions(fs, cb, options[:last]...)
	}
	appOptions = append(appOptions, appOption)
	return
}
