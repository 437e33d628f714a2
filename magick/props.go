package magick

import (
	"sort"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// Property returns the image property value.
// An empty value is reported as absent.
func (w *Wand) Property(name string) (value string, ok bool, err error) {
	err = w.do(func(mw *imagick.MagickWand) error {
		value = mw.GetImageProperty(name)
		return nil
	})
	return value, value != "", err
}

// SetProperty sets an image property e.g. "comment"
func (w *Wand) SetProperty(name, value string) error {
	const op = "imagick/set"
	if name == "" {
		return errorf(op, "empty property name")
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError(op, mw.SetImageProperty(name, value))
	})
}

// Keys returns the sorted image property names
func (w *Wand) Keys() ([]string, error) {
	var keys []string
	err := w.do(func(mw *imagick.MagickWand) error {
		keys = mw.GetImageProperties("*")
		return nil
	})
	sort.Strings(keys)
	return keys, err
}

// Width returns the image width
func (w *Wand) Width() (int, error) {
	var width int
	err := w.do(func(mw *imagick.MagickWand) error {
		width = int(mw.GetImageWidth())
		return nil
	})
	return width, err
}

// Height returns the image height
func (w *Wand) Height() (int, error) {
	var height int
	err := w.do(func(mw *imagick.MagickWand) error {
		height = int(mw.GetImageHeight())
		return nil
	})
	return height, err
}

// Size returns the image width and height
func (w *Wand) Size() (width, height int, err error) {
	err = w.do(func(mw *imagick.MagickWand) error {
		width = int(mw.GetImageWidth())
		height = int(mw.GetImageHeight())
		return nil
	})
	return
}

// Resolution returns the image x, y resolution
func (w *Wand) Resolution() (x, y float64, err error) {
	err = w.do(func(mw *imagick.MagickWand) error {
		var e error
		x, y, e = mw.GetImageResolution()
		return wrapError("imagick/info", e)
	})
	return
}

// Images returns the number of frames held by the wand
func (w *Wand) Images() (int, error) {
	var n int
	err := w.do(func(mw *imagick.MagickWand) error {
		n = int(mw.GetNumberImages())
		return nil
	})
	return n, err
}

// Info image summary
type Info struct {
	Format      string            `json:"format"`
	Width       int               `json:"width"`
	Height      int               `json:"height"`
	Images      int               `json:"images"`
	ResolutionX float64           `json:"resolution_x"`
	ResolutionY float64           `json:"resolution_y"`
	Interlace   Interlace         `json:"interlace"`
	Colorspace  Colorspace        `json:"colorspace"`
	Compression Compression       `json:"compression"`
	Quality     int               `json:"quality,omitempty"`
	Properties  map[string]string `json:"properties,omitempty"`
}

// Info returns the image summary under a single lock
func (w *Wand) Info(withProperties bool) (*Info, error) {
	var info *Info
	err := w.do(func(mw *imagick.MagickWand) error {
		x, y, err := mw.GetImageResolution()
		if err != nil {
			return wrapError("imagick/info", err)
		}
		info = &Info{
			Format:      mw.GetImageFormat(),
			Width:       int(mw.GetImageWidth()),
			Height:      int(mw.GetImageHeight()),
			Images:      int(mw.GetNumberImages()),
			ResolutionX: x,
			ResolutionY: y,
			Interlace:   interlaceFromType(mw.GetImageInterlaceScheme()),
			Colorspace:  colorspaceFromType(mw.GetImageColorspace()),
			Compression: compressionFromType(mw.GetImageCompression()),
			Quality:     int(mw.GetImageCompressionQuality()),
		}
		if withProperties {
			info.Properties = map[string]string{}
			for _, key := range mw.GetImageProperties("*") {
				if v := mw.GetImageProperty(key); v != "" {
					info.Properties[key] = v
				}
			}
		}
		return nil
	})
	return info, err
}
