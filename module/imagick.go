package module

import (
	"context"
	"fmt"
	"strings"

	"github.com/cshum/wandkit/magick"
)

// ModuleName of the MagickWand primitives
const ModuleName = "imagick"

// DefaultBlur blur factor applied by resize primitives
const DefaultBlur = 1.0

func img(name string) Param {
	return Param{Name: name, Kind: Image}
}

// NewImagick creates the imagick module with every primitive defined
func NewImagick(options ...Option) *Module {
	m := New(ModuleName, options...)
	Imagick(m)
	return m
}

// Imagick defines the MagickWand primitives on m
func Imagick(m *Module) {
	m.Define(Prim{
		Name: "file->imagick", MinArgs: 1, MaxArgs: 1, Result: Image,
		Params: []Param{{Name: "filename", Kind: String}},
		Doc:    "Reads image from file",
		Fn: func(_ context.Context, args Args) (any, error) {
			name, err := m.filePath("file->imagick", 0, args.String(0))
			if err != nil {
				return nil, err
			}
			return magick.NewFromFile(name)
		},
	})
	m.Define(Prim{
		Name: "packet->imagick", MinArgs: 1, MaxArgs: 1, Result: Image,
		Params: []Param{{Name: "packet", Kind: Bytes}},
		Doc:    "Reads image from encoded bytes",
		Fn: func(_ context.Context, args Args) (any, error) {
			return magick.NewFromBlob(args.Bytes(0))
		},
	})
	m.Define(Prim{
		Name: "imagick->file", MinArgs: 1, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "filename", Kind: String}},
		Doc:    "Writes image to file, format inferred from the file extension",
		Fn: func(_ context.Context, args Args) (any, error) {
			if !args.Has(1) {
				return nil, &ArgError{Prim: "imagick->file", Index: 1, Param: "filename", Kind: String}
			}
			name, err := m.filePath("imagick->file", 1, args.String(1))
			if err != nil {
				return nil, err
			}
			w := args.Image(0)
			return w, w.WriteFile(name)
		},
	})
	m.Define(Prim{
		Name: "imagick->packet", MinArgs: 1, MaxArgs: 1, Result: Bytes,
		Params: []Param{img("image")},
		Doc:    "Exports image as encoded bytes",
		Fn: func(_ context.Context, args Args) (any, error) {
			return args.Image(0).Blob()
		},
	})
	m.Define(Prim{
		Name: "imagick/clone", MinArgs: 1, MaxArgs: 1, Result: Image,
		Params: []Param{img("image")},
		Doc:    "Copies image into a new independent image",
		Fn: func(_ context.Context, args Args) (any, error) {
			return args.Image(0).Clone()
		},
	})
	m.Define(Prim{
		Name: "imagick/format", MinArgs: 2, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "format", Kind: Name}},
		Doc:    "Sets the export format",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.SetFormat(args.String(1))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/fit", MinArgs: 3, MaxArgs: 5, Result: Image,
		Params: []Param{
			img("image"),
			{Name: "width", Kind: Uint},
			{Name: "height", Kind: Uint},
			{Name: "filter", Kind: Name},
			{Name: "blur", Kind: Float, Default: DefaultBlur},
		},
		Doc: "Scales image to fit within width x height preserving aspect ratio",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				filter, _ := magick.ParseFilter(args.String(3))
				return w.Fit(args.Int(1), args.Int(2), filter, args.Float(4))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/resize", MinArgs: 3, MaxArgs: 5, Result: Image,
		Params: []Param{
			img("image"),
			{Name: "width", Kind: Uint},
			{Name: "height", Kind: Uint},
			{Name: "filter", Kind: Name},
			{Name: "blur", Kind: Float, Default: DefaultBlur},
		},
		Doc: "Scales image to exactly width x height",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				filter, _ := magick.ParseFilter(args.String(3))
				return w.Resize(args.Int(1), args.Int(2), filter, args.Float(4))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/interlace", MinArgs: 2, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "scheme", Kind: Any}},
		Doc:    "Sets interlace scheme none, line, plane or partition",
		Fn: func(_ context.Context, args Args) (any, error) {
			scheme, err := interlaceArg(args.get(1))
			if err != nil {
				return nil, err
			}
			return mutate(args, func(w *magick.Wand) error {
				return w.SetInterlace(scheme)
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/extend", MinArgs: 3, MaxArgs: 6, Result: Image,
		Params: []Param{
			img("image"),
			{Name: "width", Kind: Uint},
			{Name: "height", Kind: Uint},
			{Name: "x", Kind: Int, Default: int64(0)},
			{Name: "y", Kind: Int, Default: int64(0)},
			{Name: "background", Kind: Name},
		},
		Doc: "Extends image canvas with optional background colour",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.Extend(args.Int(1), args.Int(2), args.Int(3), args.Int(4), args.String(5))
			})
		},
	})
	defineRadiusSigma(m, "imagick/charcoal", "Simulates a charcoal drawing", (*magick.Wand).Charcoal)
	defineRadiusSigma(m, "imagick/emboss", "Embosses image", (*magick.Wand).Emboss)
	defineRadiusSigma(m, "imagick/blur", "Gaussian blur", (*magick.Wand).GaussianBlur)
	m.Define(Prim{
		Name: "imagick/edge", MinArgs: 2, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "radius", Kind: Float}},
		Doc:    "Enhances edges",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.Edge(args.Float(1))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/deskew", MinArgs: 2, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "threshold", Kind: Float}},
		Doc:    "Straightens image",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.Deskew(args.Float(1))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/crop", MinArgs: 2, MaxArgs: 5, Result: Image,
		Params: []Param{
			img("image"),
			{Name: "width", Kind: Uint},
			{Name: "height", Kind: Uint, Default: int64(0)},
			{Name: "x", Kind: Int, Default: int64(0)},
			{Name: "y", Kind: Int, Default: int64(0)},
		},
		Doc: "Extracts region, a zero height extends to the bottom edge",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.Crop(args.Int(1), args.Int(2), args.Int(3), args.Int(4))
			})
		},
	})
	defineNoArg(m, "imagick/flip", "Vertical mirror", (*magick.Wand).Flip)
	defineNoArg(m, "imagick/flop", "Horizontal mirror", (*magick.Wand).Flop)
	defineNoArg(m, "imagick/equalize", "Equalizes histogram", (*magick.Wand).Equalize)
	defineNoArg(m, "imagick/despeckle", "Reduces speckle noise", (*magick.Wand).Despeckle)
	defineNoArg(m, "imagick/enhance", "Reduces noise", (*magick.Wand).Enhance)
	defineNoArg(m, "imagick/strip", "Removes profiles and comments", (*magick.Wand).Strip)
	m.Define(Prim{
		Name: "imagick/display", MinArgs: 1, MaxArgs: 2, Result: Image,
		Params: []Param{img("image"), {Name: "server", Kind: String, Default: magick.DefaultDisplay}},
		Doc:    "Displays image on an X server",
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return w.Display(args.String(1))
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/get", MinArgs: 2, MaxArgs: 3, Result: Any,
		Params: []Param{img("image"), {Name: "property", Kind: Name}, {Name: "default", Kind: Any}},
		Doc:    "Returns image property, or default when absent",
		Fn: func(_ context.Context, args Args) (any, error) {
			value, ok, err := args.Image(0).Property(args.String(1))
			if err != nil {
				return nil, err
			}
			if !ok {
				return args.get(2), nil
			}
			return value, nil
		},
	})
	m.Define(Prim{
		Name: "imagick/keys", MinArgs: 1, MaxArgs: 1, Result: Any,
		Params: []Param{img("image")},
		Doc:    "Returns image property names",
		Fn: func(_ context.Context, args Args) (any, error) {
			keys, err := args.Image(0).Keys()
			if err != nil || len(keys) == 0 {
				return nil, err
			}
			return keys, nil
		},
	})
	m.Define(Prim{
		Name: "imagick/info", MinArgs: 2, MaxArgs: 3, Result: Any,
		Params: []Param{img("image"), {Name: "field", Kind: Name}, {Name: "default", Kind: Any}},
		Doc:    "Returns format, resolution, interlace, size, width or height",
		Fn: func(_ context.Context, args Args) (any, error) {
			v, ok, err := infoField(args.Image(0), args.String(1))
			if err != nil {
				return nil, err
			}
			if !ok {
				return args.get(2), nil
			}
			return v, nil
		},
	})
	m.Define(Prim{
		Name: "imagick/compression", MinArgs: 1, MaxArgs: 2, Result: Any,
		Params: []Param{img("image"), {Name: "compression", Kind: Name}},
		Doc:    "Returns compression type, or sets it when given",
		Fn: func(_ context.Context, args Args) (any, error) {
			w := args.Image(0)
			if !args.Has(1) {
				c, err := w.Compression()
				return string(c), err
			}
			c, _ := magick.ParseCompression(args.String(1))
			return mutate(args, func(w *magick.Wand) error {
				return w.SetCompression(c)
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/colorspace", MinArgs: 1, MaxArgs: 2, Result: Any,
		Params: []Param{img("image"), {Name: "colorspace", Kind: Name}},
		Doc:    "Returns colorspace, or sets it when given. Unknown names leave it unchanged",
		Fn: func(_ context.Context, args Args) (any, error) {
			w := args.Image(0)
			if !args.Has(1) {
				cs, err := w.Colorspace()
				return string(cs), err
			}
			cs, ok := magick.ParseColorspace(args.String(1))
			return mutate(args, func(w *magick.Wand) error {
				if !ok {
					// unknown names keep the current colorspace
					return nil
				}
				return w.SetColorspace(cs)
			})
		},
	})
	m.Define(Prim{
		Name: "imagick/quality", MinArgs: 1, MaxArgs: 2, Result: Any,
		Params: []Param{img("image"), {Name: "quality", Kind: Uint}},
		Doc:    "Returns compression quality, or sets it when given",
		Fn: func(_ context.Context, args Args) (any, error) {
			w := args.Image(0)
			if !args.Has(1) {
				q, err := w.Quality()
				return int64(q), err
			}
			return mutate(args, func(w *magick.Wand) error {
				return w.SetQuality(args.Int(1))
			})
		},
	})
}

// mutate applies fn to the image argument and returns it for chaining
func mutate(args Args, fn func(w *magick.Wand) error) (any, error) {
	w := args.Image(0)
	if err := fn(w); err != nil {
		return nil, err
	}
	return w, nil
}

func defineRadiusSigma(m *Module, name, doc string, fn func(w *magick.Wand, radius, sigma float64) error) {
	m.Define(Prim{
		Name: name, MinArgs: 3, MaxArgs: 3, Result: Image,
		Params: []Param{img("image"), {Name: "radius", Kind: Float}, {Name: "sigma", Kind: Float}},
		Doc:    doc,
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, func(w *magick.Wand) error {
				return fn(w, args.Float(1), args.Float(2))
			})
		},
	})
}

func defineNoArg(m *Module, name, doc string, fn func(w *magick.Wand) error) {
	m.Define(Prim{
		Name: name, MinArgs: 1, MaxArgs: 1, Result: Image,
		Params: []Param{img("image")},
		Doc:    doc,
		Fn: func(_ context.Context, args Args) (any, error) {
			return mutate(args, fn)
		},
	})
}

// interlaceArg accepts false or absent for none, and scheme names.
// Unknown names fall back to none.
func interlaceArg(v any) (magick.Interlace, error) {
	switch s := v.(type) {
	case nil:
		return magick.InterlaceNone, nil
	case bool:
		if !s {
			return magick.InterlaceNone, nil
		}
	case string:
		i, _ := magick.ParseInterlace(s)
		return i, nil
	case Symbol:
		i, _ := magick.ParseInterlace(string(s))
		return i, nil
	}
	return magick.InterlaceNone, &ArgError{
		Prim: "imagick/interlace", Index: 1, Param: "scheme", Kind: Name, Value: v,
	}
}

func infoField(w *magick.Wand, field string) (any, bool, error) {
	switch strings.ToLower(field) {
	case "format":
		format, err := w.Format()
		return format, err == nil, err
	case "resolution":
		x, y, err := w.Resolution()
		return []float64{x, y}, err == nil, err
	case "interlace":
		i, err := w.Interlace()
		return i.String(), err == nil, err
	case "size":
		width, height, err := w.Size()
		return []int64{int64(width), int64(height)}, err == nil, err
	case "width":
		width, err := w.Width()
		return int64(width), err == nil, err
	case "height":
		height, err := w.Height()
		return int64(height), err == nil, err
	case "images":
		n, err := w.Images()
		return int64(n), err == nil, err
	}
	return nil, false, nil
}

// Describe returns the primitive signature e.g. "(imagick/fit image width height [filter] [blur])"
func Describe(p *Prim) string {
	var sb strings.Builder
	sb.WriteString("(" + p.Name)
	for i := 0; i < p.MaxArgs; i++ {
		if i < p.MinArgs {
			fmt.Fprintf(&sb, " %s", p.Params[i].Name)
		} else {
			fmt.Fprintf(&sb, " [%s]", p.Params[i].Name)
		}
	}
	sb.WriteString(")")
	return sb.String()
}
