package module

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cshum/wandkit/internal/testimage"
	"github.com/cshum/wandkit/magick"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	magick.Startup()
	code := m.Run()
	magick.Shutdown()
	os.Exit(code)
}

func load(t *testing.T, m *Module, width, height int) *magick.Wand {
	res, err := m.Call(context.Background(), "packet->imagick",
		testimage.Encode(t, width, height, testimage.PNG))
	require.NoError(t, err)
	w, ok := res.(*magick.Wand)
	require.True(t, ok)
	t.Cleanup(func() {
		_ = w.Close()
	})
	return w
}

func size(t *testing.T, w *magick.Wand) (int, int) {
	width, height, err := w.Size()
	require.NoError(t, err)
	return width, height
}

func TestImagickNames(t *testing.T) {
	m := NewImagick()
	for _, name := range []string{
		"file->imagick", "packet->imagick", "imagick->file", "imagick->packet",
		"imagick/clone", "imagick/format", "imagick/fit", "imagick/interlace",
		"imagick/extend", "imagick/charcoal", "imagick/emboss", "imagick/blur",
		"imagick/edge", "imagick/crop", "imagick/flip", "imagick/flop",
		"imagick/equalize", "imagick/despeckle", "imagick/enhance",
		"imagick/deskew", "imagick/display", "imagick/get", "imagick/keys",
		"imagick/info", "imagick/resize", "imagick/compression",
		"imagick/colorspace", "imagick/quality", "imagick/strip",
	} {
		_, ok := m.Lookup(name)
		assert.True(t, ok, name)
	}
	p, _ := m.Lookup("imagick/fit")
	assert.Equal(t, 3, p.MinArgs)
	assert.Equal(t, 5, p.MaxArgs)
	p, _ = m.Lookup("imagick/crop")
	assert.Equal(t, 2, p.MinArgs)
	assert.Equal(t, 5, p.MaxArgs)
}

func TestImagickRoundTrip(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 120, 80)

	res, err := m.Call(ctx, "imagick/format", w, Symbol("jpeg"))
	require.NoError(t, err)
	assert.Same(t, w, res)

	res, err = m.Call(ctx, "imagick->packet", w)
	require.NoError(t, err)
	format, width, height := testimage.Decode(t, res.([]byte))
	assert.Equal(t, "jpeg", format)
	assert.Equal(t, 120, width)
	assert.Equal(t, 80, height)
}

func TestImagickFit(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 400, 100)

	_, err := m.Call(ctx, "imagick/fit", w, 100, 100)
	require.NoError(t, err)
	width, height := size(t, w)
	assert.Equal(t, 100, width)
	assert.Equal(t, 25, height)

	_, err = m.Call(ctx, "imagick/fit", w, 50, 50, Symbol("lanczos"), 0.9)
	require.NoError(t, err)
	width, height = size(t, w)
	assert.Equal(t, 50, width)
	assert.Equal(t, 12, height)

	_, err = m.Call(ctx, "imagick/fit", w, 50, 50, Symbol("not-a-filter"))
	require.NoError(t, err)

	_, err = m.Call(ctx, "imagick/fit", w, -1, 50)
	var arg *ArgError
	require.ErrorAs(t, err, &arg)
	assert.Equal(t, 1, arg.Index)

	_, err = m.Call(ctx, "imagick/fit", w, "wide", 50)
	require.ErrorAs(t, err, &arg)

	_, err = m.Call(ctx, "imagick/fit", "not an image", 1, 1)
	require.ErrorAs(t, err, &arg)
	assert.Equal(t, Image, arg.Kind)

	_, err = m.Call(ctx, "imagick/fit", w, 0, 50)
	var merr *magick.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "imagick/fit", merr.Op)
}

func TestImagickCloneIndependent(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 60, 60)

	res, err := m.Call(ctx, "imagick/clone", w)
	require.NoError(t, err)
	c := res.(*magick.Wand)
	defer c.Release()
	assert.NotSame(t, w, c)

	_, err = m.Call(ctx, "imagick/crop", c, 10, 20, 5, 5)
	require.NoError(t, err)
	width, height := size(t, c)
	assert.Equal(t, 10, width)
	assert.Equal(t, 20, height)
	width, height = size(t, w)
	assert.Equal(t, 60, width)
	assert.Equal(t, 60, height)
}

func TestImagickCrop(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 50, 40)
	_, err := m.Call(ctx, "imagick/crop", w, 20)
	require.NoError(t, err)
	width, height := size(t, w)
	assert.Equal(t, 20, width)
	assert.Equal(t, 40, height)
}

func TestImagickExtendFilters(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 30, 30)

	_, err := m.Call(ctx, "imagick/extend", w, 40, 50, nil, nil, "red")
	require.NoError(t, err)
	width, height := size(t, w)
	assert.Equal(t, 40, width)
	assert.Equal(t, 50, height)

	for _, call := range [][]any{
		{"imagick/charcoal", w, 1, 0.5},
		{"imagick/emboss", w, 1.0, 0.5},
		{"imagick/blur", w, 1, 1},
		{"imagick/edge", w, 1},
		{"imagick/deskew", w, 40},
		{"imagick/flip", w},
		{"imagick/flop", w},
		{"imagick/equalize", w},
		{"imagick/despeckle", w},
		{"imagick/enhance", w},
		{"imagick/strip", w},
		{"imagick/resize", w, 10, 12, Symbol("box")},
	} {
		res, err := m.Call(ctx, call[0].(string), call[1:]...)
		require.NoError(t, err, call[0])
		assert.Same(t, w, res, call[0])
	}
	width, height = size(t, w)
	assert.Equal(t, 10, width)
	assert.Equal(t, 12, height)

	_, err = m.Call(ctx, "imagick/charcoal", w, 1)
	var arity *ArityError
	assert.ErrorAs(t, err, &arity)
}

func TestImagickInterlace(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 16, 16)
	_, err := m.Call(ctx, "imagick/interlace", w, Symbol("line"))
	require.NoError(t, err)
	res, err := m.Call(ctx, "imagick/info", w, Symbol("interlace"))
	require.NoError(t, err)
	assert.Equal(t, "line", res)

	_, err = m.Call(ctx, "imagick/interlace", w, false)
	require.NoError(t, err)
	res, err = m.Call(ctx, "imagick/info", w, "interlace")
	require.NoError(t, err)
	assert.Equal(t, "none", res)

	_, err = m.Call(ctx, "imagick/interlace", w, Symbol("parition"))
	require.NoError(t, err)

	_, err = m.Call(ctx, "imagick/interlace", w, 3)
	var arg *ArgError
	assert.ErrorAs(t, err, &arg)
}

func TestImagickGet(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 16, 16)
	require.NoError(t, w.SetProperty("comment", "hi"))

	res, err := m.Call(ctx, "imagick/get", w, Symbol("comment"))
	require.NoError(t, err)
	assert.Equal(t, "hi", res)

	res, err = m.Call(ctx, "imagick/get", w, "no:such:key", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", res)

	res, err = m.Call(ctx, "imagick/get", w, "no:such:key")
	require.NoError(t, err)
	assert.Nil(t, res)

	res, err = m.Call(ctx, "imagick/keys", w)
	require.NoError(t, err)
	assert.Contains(t, res, "comment")
}

func TestImagickInfo(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 33, 22)
	for _, tt := range []struct {
		field  string
		result any
	}{
		{"format", "PNG"},
		{"size", []int64{33, 22}},
		{"width", int64(33)},
		{"height", int64(22)},
		{"images", int64(1)},
	} {
		res, err := m.Call(ctx, "imagick/info", w, Symbol(tt.field))
		require.NoError(t, err)
		assert.Equal(t, tt.result, res, tt.field)
	}
	res, err := m.Call(ctx, "imagick/info", w, Symbol("resolution"))
	require.NoError(t, err)
	assert.Len(t, res, 2)
	res, err = m.Call(ctx, "imagick/info", w, Symbol("nope"), int64(-1))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), res)
}

func TestImagickQualityColorspace(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	w := load(t, m, 16, 16)
	_, err := m.Call(ctx, "imagick/quality", w, 55)
	require.NoError(t, err)
	res, err := m.Call(ctx, "imagick/quality", w)
	require.NoError(t, err)
	assert.Equal(t, int64(55), res)

	_, err = m.Call(ctx, "imagick/colorspace", w, Symbol("gray"))
	require.NoError(t, err)
	res, err = m.Call(ctx, "imagick/colorspace", w)
	require.NoError(t, err)
	assert.Equal(t, "GRAY", res)

	res, err = m.Call(ctx, "imagick/colorspace", w, Symbol("nope"))
	require.NoError(t, err)
	assert.Same(t, w, res)
	res, err = m.Call(ctx, "imagick/colorspace", w)
	require.NoError(t, err)
	assert.Equal(t, "GRAY", res)

	res, err = m.Call(ctx, "imagick/compression", w, Symbol("nope"))
	require.NoError(t, err)
	assert.Same(t, w, res)

	_, err = m.Call(ctx, "imagick/compression", w, Symbol("zip"))
	require.NoError(t, err)
	res, err = m.Call(ctx, "imagick/compression", w)
	require.NoError(t, err)
	assert.Equal(t, "Zip", res)
}

func TestImagickFiles(t *testing.T) {
	m := NewImagick()
	ctx := context.Background()
	path := testimage.File(t, "in.gif", 24, 24)

	res, err := m.Call(ctx, "file->imagick", path)
	require.NoError(t, err)
	w := res.(*magick.Wand)
	defer w.Release()

	_, err = m.Call(ctx, "imagick->file", w)
	var arg *ArgError
	require.ErrorAs(t, err, &arg)
	assert.Equal(t, "filename", arg.Param)

	out := filepath.Join(t.TempDir(), "out.png")
	res, err = m.Call(ctx, "imagick->file", w, out)
	require.NoError(t, err)
	assert.Same(t, w, res)
	buf, err := os.ReadFile(out)
	require.NoError(t, err)
	format, _, _ := testimage.Decode(t, buf)
	assert.Equal(t, "png", format)

	res, err = m.Call(ctx, "file->imagick", filepath.Join(t.TempDir(), "missing.png"))
	assert.Nil(t, res)
	var merr *magick.Error
	require.ErrorAs(t, err, &merr)
	assert.Equal(t, "file->imagick", merr.Op)

	res, err = m.Call(ctx, "packet->imagick", []byte("garbage"))
	assert.Nil(t, res)
	assert.ErrorAs(t, err, &merr)
}

func TestImagickClosed(t *testing.T) {
	m := NewImagick()
	w := load(t, m, 8, 8)
	require.NoError(t, w.Close())
	_, err := m.Call(context.Background(), "imagick/flip", w)
	assert.ErrorIs(t, err, magick.ErrClosed)
}

func TestImagickFileRoot(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "in.png"),
		testimage.Encode(t, 12, 10, testimage.PNG), 0644))
	outside := filepath.Dir(testimage.File(t, "secret.png", 4, 4))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))

	m := NewImagick(WithFileRoot(root))
	for _, name := range []string{"in.png", "/in.png", "a/../in.png", "/../in.png"} {
		res, err := m.Call(ctx, "file->imagick", name)
		require.NoError(t, err, name)
		w := res.(*magick.Wand)
		width, height := size(t, w)
		assert.Equal(t, 12, width)
		assert.Equal(t, 10, height)
		w.Release()
	}

	for _, name := range []string{
		"../in.png",
		"a/../../in.png",
		"link/secret.png",
		"text:/etc/passwd",
		"ephemeral:in.png",
		"in.png[0]",
	} {
		res, err := m.Call(ctx, "file->imagick", name)
		assert.Nil(t, res, name)
		var arg *ArgError
		require.ErrorAs(t, err, &arg, name)
		assert.ErrorIs(t, err, ErrFileAccess, name)
		assert.True(t, IsArgumentError(err))
	}

	w := load(t, m, 6, 6)
	_, err := m.Call(ctx, "imagick->file", w, "/out.png")
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(root, "out.png"))
	assert.NoError(t, err)
	_, err = m.Call(ctx, "imagick->file", w, "../escaped.png")
	assert.ErrorIs(t, err, ErrFileAccess)
	_, err = os.Stat(filepath.Join(filepath.Dir(root), "escaped.png"))
	assert.True(t, os.IsNotExist(err))
	_, err = m.Call(ctx, "imagick->file", w, "link/out.png")
	assert.ErrorIs(t, err, ErrFileAccess)

	m = NewImagick(WithDisableFiles(true))
	_, err = m.Call(ctx, "file->imagick", filepath.Join(root, "in.png"))
	assert.ErrorIs(t, err, ErrFileAccess)
	_, err = m.Call(ctx, "imagick->file", w, filepath.Join(root, "other.png"))
	assert.ErrorIs(t, err, ErrFileAccess)
}
