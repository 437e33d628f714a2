package magick

import (
	"math/bits"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// DefaultDisplay is the X server used by Display when none is given
const DefaultDisplay = ":0.0"

// SetFormat sets the image format used by Blob and WriteFile e.g. "png"
func (w *Wand) SetFormat(format string) error {
	const op = "imagick/format"
	if format == "" {
		return errorf(op, "empty format")
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError(op, mw.SetImageFormat(format))
	})
}

// Format returns the image format e.g. "JPEG"
func (w *Wand) Format() (string, error) {
	var format string
	err := w.do(func(mw *imagick.MagickWand) error {
		format = mw.GetImageFormat()
		return nil
	})
	return format, err
}

// FitSize calculates the largest size within width x height
// that preserves the aspect ratio of iw x ih. Each dimension is at least 1.
func FitSize(iw, ih, width, height uint) (uint, uint) {
	if iw == 0 || ih == 0 {
		return 0, 0
	}
	var w, h uint
	// 128 bit products, requested sizes may be close to the integer range
	if lessOrEqual(uint64(width), uint64(ih), uint64(height), uint64(iw)) {
		w = width
		h = uint(mulDiv(uint64(ih), uint64(width), uint64(iw)))
	} else {
		h = height
		w = uint(mulDiv(uint64(iw), uint64(height), uint64(ih)))
	}
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	return w, h
}

// lessOrEqual reports a*b <= c*d without overflow
func lessOrEqual(a, b, c, d uint64) bool {
	hi1, lo1 := bits.Mul64(a, b)
	hi2, lo2 := bits.Mul64(c, d)
	return hi1 < hi2 || (hi1 == hi2 && lo1 <= lo2)
}

// mulDiv returns a*b/c, the quotient must fit in 64 bits
func mulDiv(a, b, c uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	q, _ := bits.Div64(hi, lo, c)
	return q
}

// Fit scales the image to fit within width x height preserving aspect ratio
func (w *Wand) Fit(width, height int, filter Filter, blur float64) error {
	const op = "imagick/fit"
	if width < 1 || height < 1 {
		return errorf(op, "invalid fit size %dx%d", width, height)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		tw, th := FitSize(mw.GetImageWidth(), mw.GetImageHeight(), uint(width), uint(height))
		if tw == 0 || th == 0 {
			return errorf(op, "empty image")
		}
		log(op, LogLevelDebug, "resize "+filter.String())
		return wrapError(op, mw.ResizeImage(tw, th, filter.filterType(), blur))
	})
}

// Resize scales the image to exactly width x height
func (w *Wand) Resize(width, height int, filter Filter, blur float64) error {
	const op = "imagick/resize"
	if width < 1 || height < 1 {
		return errorf(op, "invalid resize size %dx%d", width, height)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError(op, mw.ResizeImage(uint(width), uint(height), filter.filterType(), blur))
	})
}

// SetInterlace sets the interlace scheme used on export
func (w *Wand) SetInterlace(interlace Interlace) error {
	const op = "imagick/interlace"
	if interlace == InterlaceOther {
		return errorf(op, "invalid interlace %s", interlace)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		if err := mw.SetInterlaceScheme(interlace.interlaceType()); err != nil {
			return wrapError(op, err)
		}
		return wrapError(op, mw.SetImageInterlaceScheme(interlace.interlaceType()))
	})
}

// Interlace returns the image interlace scheme
func (w *Wand) Interlace() (Interlace, error) {
	var interlace Interlace
	err := w.do(func(mw *imagick.MagickWand) error {
		interlace = interlaceFromType(mw.GetImageInterlaceScheme())
		return nil
	})
	return interlace, err
}

// Extend extends the image canvas to width x height with x, y offset.
// The new area is filled with background when given, an invalid colour
// is logged and ignored.
func (w *Wand) Extend(width, height, x, y int, background string) error {
	const op = "imagick/extend"
	if width < 1 || height < 1 {
		return errorf(op, "invalid extend size %dx%d", width, height)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		if background != "" {
			pw := imagick.NewPixelWand()
			defer pw.Destroy()
			if pw.SetColor(background) {
				if err := mw.SetImageBackgroundColor(pw); err != nil {
					log(op, LogLevelWarning, "background: "+err.Error())
				}
			} else {
				log(op, LogLevelWarning, "bad background colour "+background)
			}
		}
		return wrapError(op, mw.ExtentImage(uint(width), uint(height), x, y))
	})
}

// Charcoal simulates a charcoal drawing
func (w *Wand) Charcoal(radius, sigma float64) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/charcoal", mw.CharcoalImage(radius, sigma))
	})
}

// Emboss returns a grayscale image with a three-dimensional effect
func (w *Wand) Emboss(radius, sigma float64) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/emboss", mw.EmbossImage(radius, sigma))
	})
}

// GaussianBlur blurs the image with a Gaussian operator
func (w *Wand) GaussianBlur(radius, sigma float64) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/blur", mw.GaussianBlurImage(radius, sigma))
	})
}

// Edge enhances edges within the image
func (w *Wand) Edge(radius float64) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/edge", mw.EdgeImage(radius))
	})
}

// Deskew straightens the image, threshold is a percentage of QuantumRange
func (w *Wand) Deskew(threshold float64) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/deskew", mw.DeskewImage(threshold))
	})
}

// Crop extracts a region of the image.
// A zero height extends the region to the bottom edge.
func (w *Wand) Crop(width, height, x, y int) error {
	const op = "imagick/crop"
	if width < 1 || height < 0 {
		return errorf(op, "invalid crop size %dx%d", width, height)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		if height == 0 {
			height = int(mw.GetImageHeight()) - y
			if height < 1 {
				return errorf(op, "crop offset %d outside image", y)
			}
		}
		if err := mw.CropImage(uint(width), uint(height), x, y); err != nil {
			return wrapError(op, err)
		}
		// drop the virtual canvas left over from cropping
		return wrapError(op, mw.ResetImagePage("0x0+0+0"))
	})
}

// Flip creates a vertical mirror image
func (w *Wand) Flip() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/flip", mw.FlipImage())
	})
}

// Flop creates a horizontal mirror image
func (w *Wand) Flop() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/flop", mw.FlopImage())
	})
}

// Equalize equalizes the image histogram
func (w *Wand) Equalize() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/equalize", mw.EqualizeImage())
	})
}

// Despeckle reduces speckle noise
func (w *Wand) Despeckle() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/despeckle", mw.DespeckleImage())
	})
}

// Enhance applies a digital filter that improves the quality of a noisy image
func (w *Wand) Enhance() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/enhance", mw.EnhanceImage())
	})
}

// Display shows the image on an X server, DefaultDisplay if server is empty
func (w *Wand) Display(server string) error {
	if server == "" {
		server = DefaultDisplay
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/display", mw.DisplayImage(server))
	})
}

// SetCompression sets the compression type used on export
func (w *Wand) SetCompression(compression Compression) error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/compression", mw.SetImageCompression(compression.compressionType()))
	})
}

// Compression returns the image compression type
func (w *Wand) Compression() (Compression, error) {
	var c Compression
	err := w.do(func(mw *imagick.MagickWand) error {
		c = compressionFromType(mw.GetImageCompression())
		return nil
	})
	return c, err
}

// SetColorspace sets the image colorspace
func (w *Wand) SetColorspace(colorspace Colorspace) error {
	const op = "imagick/colorspace"
	if colorspace == ColorspaceUndefined {
		return errorf(op, "undefined colorspace")
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError(op, mw.SetImageColorspace(colorspace.colorspaceType()))
	})
}

// Colorspace returns the image colorspace
func (w *Wand) Colorspace() (Colorspace, error) {
	var c Colorspace
	err := w.do(func(mw *imagick.MagickWand) error {
		c = colorspaceFromType(mw.GetImageColorspace())
		return nil
	})
	return c, err
}

// SetQuality sets the compression quality 1-100
func (w *Wand) SetQuality(quality int) error {
	const op = "imagick/quality"
	if quality < 1 || quality > 100 {
		return errorf(op, "invalid quality %d", quality)
	}
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError(op, mw.SetImageCompressionQuality(uint(quality)))
	})
}

// Quality returns the compression quality, 0 if unknown
func (w *Wand) Quality() (int, error) {
	var q int
	err := w.do(func(mw *imagick.MagickWand) error {
		q = int(mw.GetImageCompressionQuality())
		return nil
	})
	return q, err
}

// Strip removes profiles and comments
func (w *Wand) Strip() error {
	return w.do(func(mw *imagick.MagickWand) error {
		return wrapError("imagick/strip", mw.StripImage())
	})
}
