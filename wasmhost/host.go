// Package wasmhost installs the imagick primitives into a wazero runtime
// as a host module, so WebAssembly guests can manipulate images through
// integer handles.
package wasmhost

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"

	"github.com/cshum/wandkit/magick"
	"github.com/cshum/wandkit/module"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Result codes returned in place of a handle or result length
const (
	ResultError int64 = -1
	ResultVoid  int64 = -2
)

// AbsentInt marks an absent integer argument
const AbsentInt int64 = math.MinInt64

// Helper export names
const (
	ResultRead = "result-read"
	ErrorRead  = "error-read"
	Retain     = "retain"
	Release    = "release"
)

var (
	errNoMemory    = errors.New("wasmhost: guest exports no memory")
	errOutOfBounds = errors.New("wasmhost: memory access out of bounds")
	errBadHandle   = errors.New("wasmhost: invalid image handle")
)

// guest result and error state of a calling module
type guest struct {
	result []byte
	err    string
}

// Host exposes Module to wasm guests
type Host struct {
	Module *module.Module
	Logger *zap.Logger

	table  *table
	guests map[api.Module]*guest
	lock   sync.Mutex
}

// Option Host option
type Option func(h *Host)

// WithLogger with logger option
func WithLogger(logger *zap.Logger) Option {
	return func(h *Host) {
		if logger != nil {
			h.Logger = logger
		}
	}
}

// WithModule with primitive module option, defaults to the imagick module
func WithModule(m *module.Module) Option {
	return func(h *Host) {
		if m != nil {
			h.Module = m
		}
	}
}

// New creates a Host
func New(options ...Option) *Host {
	h := &Host{
		Logger: zap.NewNop(),
		table:  newTable(),
		guests: map[api.Module]*guest{},
	}
	for _, option := range options {
		option(h)
	}
	if h.Module == nil {
		h.Module = module.NewImagick(module.WithLogger(h.Logger))
	}
	return h
}

// Signature returns the wasm parameter and result types of the primitive export
func Signature(p *module.Prim) (params, results []api.ValueType) {
	for _, param := range p.Params[:p.MaxArgs] {
		switch param.Kind {
		case module.Image:
			params = append(params, api.ValueTypeI32)
		case module.Int, module.Uint:
			params = append(params, api.ValueTypeI64)
		case module.Float:
			params = append(params, api.ValueTypeF64)
		default:
			params = append(params, api.ValueTypeI32, api.ValueTypeI32)
		}
	}
	return params, []api.ValueType{api.ValueTypeI64}
}

// Instantiate instantiates the host module into runtime r,
// it must precede instantiating guests importing it
func (h *Host) Instantiate(ctx context.Context, r wazero.Runtime) (api.Module, error) {
	builder := r.NewHostModuleBuilder(module.ModuleName)
	for _, p := range h.Module.Prims() {
		params, results := Signature(p)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(h.primFunc(p), params, results).
			WithName(p.Name).
			Export(p.Name)
	}
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.resultRead),
			[]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export(ResultRead)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.errorRead),
			[]api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export(ErrorRead)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.retain),
			[]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI64}).
		Export(Retain)
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(h.release),
			[]api.ValueType{api.ValueTypeI32}, []api.ValueType{api.ValueTypeI32}).
		Export(Release)
	return builder.Instantiate(ctx)
}

// Handles returns the number of live handles
func (h *Host) Handles() int {
	return h.table.len()
}

// Wand returns the wand of handle, for embedding hosts
func (h *Host) Wand(handle uint32) (*magick.Wand, bool) {
	return h.table.get(handle)
}

// Adopt issues a handle owning w, for embedding hosts
func (h *Host) Adopt(w *magick.Wand) uint32 {
	return h.table.insert(w)
}

// Forget drops the result and error state kept for guest mod
func (h *Host) Forget(mod api.Module) {
	h.lock.Lock()
	defer h.lock.Unlock()
	delete(h.guests, mod)
}

// Close releases every wand still referenced by a handle
func (h *Host) Close() error {
	h.table.close()
	h.lock.Lock()
	defer h.lock.Unlock()
	h.guests = map[api.Module]*guest{}
	return nil
}

func (h *Host) guest(mod api.Module) *guest {
	h.lock.Lock()
	defer h.lock.Unlock()
	g, ok := h.guests[mod]
	if !ok {
		g = &guest{}
		h.guests[mod] = g
	}
	return g
}

func (h *Host) fail(mod api.Module, name string, err error) int64 {
	h.Logger.Debug("wasm call", zap.String("prim", name), zap.Error(err))
	g := h.guest(mod)
	h.lock.Lock()
	g.err = err.Error()
	h.lock.Unlock()
	return ResultError
}

func (h *Host) primFunc(p *module.Prim) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		stack[0] = uint64(h.call(ctx, mod, p, stack))
	}
}

// call decodes the stack into arguments, calls the primitive and
// encodes its result
func (h *Host) call(ctx context.Context, mod api.Module, p *module.Prim, stack []uint64) int64 {
	args := make([]any, p.MaxArgs)
	handles := make([]uint32, p.MaxArgs)
	pos := 0
	for i, param := range p.Params[:p.MaxArgs] {
		switch param.Kind {
		case module.Image:
			handle := api.DecodeU32(stack[pos])
			pos++
			if handle == 0 {
				continue
			}
			w, ok := h.table.get(handle)
			if !ok {
				return h.fail(mod, p.Name, errBadHandle)
			}
			args[i] = w
			handles[i] = handle
		case module.Int, module.Uint:
			if n := int64(stack[pos]); n != AbsentInt {
				args[i] = n
			}
			pos++
		case module.Float:
			if f := api.DecodeF64(stack[pos]); !math.IsNaN(f) {
				args[i] = f
			}
			pos++
		default:
			ptr, size := api.DecodeU32(stack[pos]), api.DecodeU32(stack[pos+1])
			pos += 2
			if ptr == 0 && size == 0 {
				continue
			}
			buf, err := read(mod, ptr, size)
			if err != nil {
				return h.fail(mod, p.Name, err)
			}
			if param.Kind == module.Bytes {
				args[i] = append([]byte(nil), buf...)
			} else {
				args[i] = string(buf)
			}
		}
	}
	// trailing absent arguments are not passed, so arity applies
	n := len(args)
	for n > 0 && args[n-1] == nil {
		n--
	}
	res, err := h.Module.Call(ctx, p.Name, args[:n]...)
	if err != nil {
		return h.fail(mod, p.Name, err)
	}
	return h.encode(mod, p, res, args, handles)
}

func (h *Host) encode(mod api.Module, p *module.Prim, res any, args []any, handles []uint32) int64 {
	var buf []byte
	switch v := res.(type) {
	case nil:
		return ResultVoid
	case *magick.Wand:
		for i, arg := range args {
			if arg == v && handles[i] != 0 {
				return int64(handles[i])
			}
		}
		handle := h.table.insert(v)
		if handle == 0 {
			v.Release()
			return h.fail(mod, p.Name, magick.ErrClosed)
		}
		return int64(handle)
	case []byte:
		buf = v
	case string:
		buf = []byte(v)
	default:
		var err error
		if buf, err = json.Marshal(v); err != nil {
			return h.fail(mod, p.Name, err)
		}
	}
	g := h.guest(mod)
	h.lock.Lock()
	g.result = buf
	h.lock.Unlock()
	return int64(len(buf))
}

// resultRead copies the pending result into guest memory at ptr
func (h *Host) resultRead(_ context.Context, mod api.Module, stack []uint64) {
	ptr := api.DecodeU32(stack[0])
	g := h.guest(mod)
	h.lock.Lock()
	buf := g.result
	g.result = nil
	h.lock.Unlock()
	if err := write(mod, ptr, buf); err != nil {
		h.fail(mod, ResultRead, err)
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(len(buf)))
}

// errorRead copies up to size bytes of the last error message into guest
// memory at ptr and returns the full message length
func (h *Host) errorRead(_ context.Context, mod api.Module, stack []uint64) {
	ptr, size := api.DecodeU32(stack[0]), api.DecodeU32(stack[1])
	g := h.guest(mod)
	h.lock.Lock()
	msg := g.err
	h.lock.Unlock()
	buf := []byte(msg)
	if uint32(len(buf)) > size {
		buf = buf[:size]
	}
	if err := write(mod, ptr, buf); err != nil {
		stack[0] = api.EncodeI32(-1)
		return
	}
	stack[0] = api.EncodeI32(int32(len(msg)))
}

// retain issues a new handle to the same wand
func (h *Host) retain(_ context.Context, mod api.Module, stack []uint64) {
	w, ok := h.table.get(api.DecodeU32(stack[0]))
	if !ok {
		stack[0] = uint64(h.fail(mod, Retain, errBadHandle))
		return
	}
	if err := w.Retain(); err != nil {
		stack[0] = uint64(h.fail(mod, Retain, err))
		return
	}
	handle := h.table.insert(w)
	if handle == 0 {
		w.Release()
		stack[0] = uint64(h.fail(mod, Retain, magick.ErrClosed))
		return
	}
	stack[0] = uint64(handle)
}

// release drops the handle and its wand reference, 0 if already released
func (h *Host) release(_ context.Context, _ api.Module, stack []uint64) {
	w, ok := h.table.remove(api.DecodeU32(stack[0]))
	if !ok {
		stack[0] = api.EncodeI32(0)
		return
	}
	w.Release()
	stack[0] = api.EncodeI32(1)
}

func read(mod api.Module, ptr, size uint32) ([]byte, error) {
	mem := mod.Memory()
	if mem == nil {
		return nil, errNoMemory
	}
	buf, ok := mem.Read(ptr, size)
	if !ok {
		return nil, errOutOfBounds
	}
	return buf, nil
}

func write(mod api.Module, ptr uint32, buf []byte) error {
	if len(buf) == 0 {
		return nil
	}
	mem := mod.Memory()
	if mem == nil {
		return errNoMemory
	}
	if !mem.Write(ptr, buf) {
		return errOutOfBounds
	}
	return nil
}
