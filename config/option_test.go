package config

import (
	"flag"
	"testing"

	"github.com/cshum/wandkit"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestApplyOptions(t *testing.T) {
	fs := flag.NewFlagSet("wandkit", flag.ExitOnError)
	nopLogger := zap.NewNop()
	var seq []int
	newOption := func(before, after, apply int) Option {
		return func(fs *flag.FlagSet, cb func() (*zap.Logger, bool)) wandkit.Option {
			seq = append(seq, before)
			logger, isDebug := cb()
			assert.Equal(t, nopLogger, logger)
			assert.True(t, isDebug)
			seq = append(seq, after)
			return func(app *wandkit.App) {
				seq = append(seq, apply)
			}
		}
	}
	options, logger, isDebug := applyOptions(fs, func() (*zap.Logger, bool) {
		seq = append(seq, 4)
		return nopLogger, true
	}, newOption(3, 5, 8), nil, newOption(2, 6, 9), newOption(1, 7, 10))
	assert.Equal(t, nopLogger, logger)
	assert.True(t, isDebug)
	app := &wandkit.App{}
	for _, option := range options {
		option(app)
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}, seq)
}

func TestApplyOptionsWithoutCallback(t *testing.T) {
	fs := flag.NewFlagSet("wandkit", flag.ExitOnError)
	var seq []int
	options, _, _ := applyOptions(fs, func() (*zap.Logger, bool) {
		seq = append(seq, 1)
		return zap.NewNop(), false
	}, func(fs *flag.FlagSet, cb func() (*zap.Logger, bool)) wandkit.Option {
		seq = append(seq, 0)
		return func(app *wandkit.App) {
			seq = append(seq, 2)
		}
	})
	for _, option := range options {
		option(&wandkit.App{})
	}
	assert.Equal(t, []int{0, 1, 2}, seq)
}
