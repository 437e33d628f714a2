// Package module is the host boundary of the MagickWand binding:
// a registry of primitives with declared arities and argument kinds,
// which host runtimes install into their own module system.
package module

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cshum/wandkit/magick"
	"github.com/cshum/wandkit/metrics/instrumentation"
	"go.uber.org/zap"
)

// Param primitive parameter
type Param struct {
	Name string
	Kind Kind
	// Default value of an optional parameter, nil leaves it absent
	Default any
}

// Func primitive implementation, args are checked against Params
type Func func(ctx context.Context, args Args) (any, error)

// Prim primitive definition
type Prim struct {
	Name    string
	MinArgs int
	MaxArgs int
	Params  []Param
	Result  Kind
	Doc     string
	Fn      Func
}

// Args checked primitive arguments, absent optional arguments are nil
type Args []any

// Has indicates if argument i is present
func (a Args) Has(i int) bool {
	return i < len(a) && a[i] != nil
}

// Image returns argument i as wand
func (a Args) Image(i int) *magick.Wand {
	w, _ := a.get(i).(*magick.Wand)
	return w
}

// Int returns argument i as int
func (a Args) Int(i int) int {
	n, _ := a.get(i).(int64)
	return int(n)
}

// Float returns argument i as float64
func (a Args) Float(i int) float64 {
	f, _ := a.get(i).(float64)
	return f
}

// String returns argument i as string
func (a Args) String(i int) string {
	s, _ := a.get(i).(string)
	return s
}

// Bytes returns argument i as bytes
func (a Args) Bytes(i int) []byte {
	b, _ := a.get(i).([]byte)
	return b
}

func (a Args) get(i int) any {
	if i < len(a) {
		return a[i]
	}
	return nil
}

// Module named set of primitives
type Module struct {
	Name         string
	Logger       *zap.Logger
	FileRoot     string
	DisableFiles bool

	instrumentation *instrumentation.Instrumentation
	prims           map[string]*Prim
	lock            sync.RWMutex
}

// Option Module option
type Option func(m *Module)

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(m *Module) {
		if logger != nil {
			m.Logger = logger
		}
	}
}

// New creates a Module
func New(name string, options ...Option) *Module {
	m := &Module{
		Name:   name,
		Logger: zap.NewNop(),
		prims:  map[string]*Prim{},
	}
	for _, option := range options {
		option(m)
	}
	m.instrumentation = instrumentation.New(name, m.Logger)
	return m
}

// Define registers primitive, replacing any with the same name
func (m *Module) Define(p Prim) {
	if p.Name == "" || p.Fn == nil {
		panic("module: invalid primitive definition")
	}
	if p.MaxArgs < p.MinArgs || p.MaxArgs > len(p.Params) {
		panic(fmt.Sprintf("module: %s: invalid arity %d to %d", p.Name, p.MinArgs, p.MaxArgs))
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	m.prims[p.Name] = &p
}

// Lookup returns primitive by name
func (m *Module) Lookup(name string) (*Prim, bool) {
	m.lock.RLock()
	defer m.lock.RUnlock()
	p, ok := m.prims[name]
	return p, ok
}

// Names returns sorted primitive names
func (m *Module) Names() []string {
	m.lock.RLock()
	defer m.lock.RUnlock()
	names := make([]string, 0, len(m.prims))
	for name := range m.prims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Prims returns primitives sorted by name
func (m *Module) Prims() []*Prim {
	names := m.Names()
	prims := make([]*Prim, 0, len(names))
	for _, name := range names {
		if p, ok := m.Lookup(name); ok {
			prims = append(prims, p)
		}
	}
	return prims
}

// Call checks args against the primitive signature and invokes it.
// Argument errors are raised before the library is touched.
func (m *Module) Call(ctx context.Context, name string, args ...any) (any, error) {
	p, ok := m.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknown, name)
	}
	timer := m.instrumentation.NewTimer(name)
	checked, err := p.Check(args)
	if err != nil {
		timer.Observe(instrumentation.StatusArgument, err)
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		timer.Observe(instrumentation.StatusError, err)
		return nil, err
	}
	res, err := p.Fn(ctx, checked)
	if err != nil {
		timer.Observe(instrumentation.StatusError, err)
		return nil, err
	}
	timer.Observe(instrumentation.StatusSuccess, nil)
	return res, nil
}

// Check validates arity and argument kinds, filling defaults of absent
// optional arguments
func (p *Prim) Check(args []any) (Args, error) {
	if len(args) < p.MinArgs || len(args) > p.MaxArgs {
		return nil, &ArityError{Prim: p.Name, Min: p.MinArgs, Max: p.MaxArgs, Got: len(args)}
	}
	checked := make(Args, p.MaxArgs)
	for i := 0; i < p.MaxArgs; i++ {
		param := p.Params[i]
		if i >= len(args) || args[i] == nil {
			if i < p.MinArgs {
				return nil, &ArgError{Prim: p.Name, Index: i, Param: param.Name, Kind: param.Kind}
			}
			checked[i] = param.Default
			continue
		}
		v, ok := check(param.Kind, args[i])
		if !ok {
			return nil, &ArgError{Prim: p.Name, Index: i, Param: param.Name, Kind: param.Kind, Value: args[i]}
		}
		checked[i] = v
	}
	return checked, nil
}

// Parse coerces textual arguments per parameter kind.
// Image parameters are supplied by the caller and left untouched.
func (p *Prim) Parse(texts []string, offset int) ([]any, error) {
	args := make([]any, 0, len(texts))
	for i, text := range texts {
		idx := i + offset
		if idx >= len(p.Params) {
			return nil, &ArityError{Prim: p.Name, Min: p.MinArgs, Max: p.MaxArgs, Got: len(texts) + offset}
		}
		if text == "" {
			args = append(args, nil)
			continue
		}
		param := p.Params[idx]
		v, err := Coerce(param.Kind, text)
		if err != nil {
			return nil, &ArgError{Prim: p.Name, Index: idx, Param: param.Name, Kind: param.Kind, Value: text, Err: err}
		}
		args = append(args, v)
	}
	return args, nil
}
