// Package testimage generates image fixtures for tests
package testimage

import (
	"bytes"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Format fixture encoding
type Format = imaging.Format

// Fixture formats
const (
	PNG  = imaging.PNG
	JPEG = imaging.JPEG
	GIF  = imaging.GIF
	BMP  = imaging.BMP
	TIFF = imaging.TIFF
)

// New returns a width x height image with a red square on a blue canvas
func New(width, height int) image.Image {
	canvas := imaging.New(width, height, color.NRGBA{R: 30, G: 60, B: 200, A: 255})
	sw, sh := width/2, height/2
	if sw < 1 {
		sw = 1
	}
	if sh < 1 {
		sh = 1
	}
	square := imaging.New(sw, sh, color.NRGBA{R: 220, G: 20, B: 20, A: 255})
	return imaging.Paste(canvas, square, image.Pt(width/4, height/4))
}

// Encode returns the fixture encoded in format
func Encode(t testing.TB, width, height int, format Format) []byte {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, imaging.Encode(buf, New(width, height), format))
	return buf.Bytes()
}

// File writes the fixture into the test temp dir and returns its path
func File(t testing.TB, name string, width, height int) string {
	t.Helper()
	format, err := imaging.FormatFromFilename(name)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, Encode(t, width, height, format), 0644))
	return path
}

// Decode decodes buf and returns its format name and size
func Decode(t testing.TB, buf []byte) (string, int, int) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(buf))
	require.NoError(t, err)
	return format, cfg.Width, cfg.Height
}
