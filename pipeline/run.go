package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/cshum/wandkit/magick"
	"github.com/cshum/wandkit/module"
)

// Prefix maps op names onto module primitives e.g. fit to imagick/fit
const Prefix = module.ModuleName + "/"

// forbidden primitives reaching outside the wand
var forbidden = map[string]bool{
	"imagick/display": true,
	"imagick/clone":   true,
}

// Lookup resolves op into a primitive that mutates the image in place
func Lookup(m *module.Module, name string) (*module.Prim, error) {
	prim := Prefix + strings.ToLower(name)
	p, ok := m.Lookup(prim)
	if !ok || forbidden[prim] || p.Result != module.Image ||
		len(p.Params) == 0 || p.Params[0].Kind != module.Image {
		return nil, fmt.Errorf("%w: %s", module.ErrUnknown, name)
	}
	return p, nil
}

// Run applies ops on w in order, stopping at the first error
func Run(ctx context.Context, m *module.Module, w *magick.Wand, ops Ops) error {
	for _, op := range ops {
		if err := ctx.Err(); err != nil {
			return err
		}
		p, err := Lookup(m, op.Name)
		if err != nil {
			return err
		}
		args, err := p.Parse(SplitArgs(op.Args), 1)
		if err != nil {
			return err
		}
		if _, err := m.Call(ctx, p.Name, append([]any{w}, args...)...); err != nil {
			return err
		}
	}
	return nil
}

// Validate checks ops resolve to primitives with acceptable arguments,
// without touching any image
func Validate(m *module.Module, ops Ops) error {
	for _, op := range ops {
		p, err := Lookup(m, op.Name)
		if err != nil {
			return err
		}
		args, err := p.Parse(SplitArgs(op.Args), 1)
		if err != nil {
			return err
		}
		if n := len(args) + 1; n < p.MinArgs || n > p.MaxArgs {
			return &module.ArityError{Prim: p.Name, Min: p.MinArgs, Max: p.MaxArgs, Got: n}
		}
	}
	return nil
}
