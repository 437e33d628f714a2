package magick

import (
	"strings"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// Filter resampling kernel used by resize operations
type Filter int

// Filter enum
const (
	FilterTriangle Filter = iota
	FilterBox
	FilterBlackman
	FilterCatrom
	FilterGaussian
	FilterCubic
	FilterHanning
	FilterHermite
	FilterLanczos
	FilterMitchell
	FilterPoint
	FilterQuadratic
	FilterSinc
	FilterBessel
)

// DefaultFilter is used when no filter, or an unknown filter is given
const DefaultFilter = FilterTriangle

var filterNames = map[Filter]string{
	FilterTriangle:  "triangle",
	FilterBox:       "box",
	FilterBlackman:  "blackman",
	FilterCatrom:    "catrom",
	FilterGaussian:  "gaussian",
	FilterCubic:     "cubic",
	FilterHanning:   "hanning",
	FilterHermite:   "hermite",
	FilterLanczos:   "lanczos",
	FilterMitchell:  "mitchell",
	FilterPoint:     "point",
	FilterQuadratic: "quadratic",
	FilterSinc:      "sinc",
	FilterBessel:    "bessel",
}

var filterTypes = map[Filter]imagick.FilterType{
	FilterTriangle:  imagick.FILTER_TRIANGLE,
	FilterBox:       imagick.FILTER_BOX,
	FilterBlackman:  imagick.FILTER_BLACKMAN,
	FilterCatrom:    imagick.FILTER_CATROM,
	FilterGaussian:  imagick.FILTER_GAUSSIAN,
	FilterCubic:     imagick.FILTER_CUBIC,
	FilterHanning:   imagick.FILTER_HANNING,
	FilterHermite:   imagick.FILTER_HERMITE,
	FilterLanczos:   imagick.FILTER_LANCZOS,
	FilterMitchell:  imagick.FILTER_MITCHELL,
	FilterPoint:     imagick.FILTER_POINT,
	FilterQuadratic: imagick.FILTER_QUADRATIC,
	FilterSinc:      imagick.FILTER_SINC,
	// Bessel is the Jinc windowed kernel in ImageMagick
	FilterBessel: imagick.FILTER_JINC,
}

// String implements fmt.Stringer
func (f Filter) String() string {
	if name, ok := filterNames[f]; ok {
		return name
	}
	return filterNames[DefaultFilter]
}

func (f Filter) filterType() imagick.FilterType {
	if t, ok := filterTypes[f]; ok {
		return t
	}
	return filterTypes[DefaultFilter]
}

// ParseFilter looks up a filter by case-insensitive name.
// Empty name gives the default filter, unknown name gives the default filter
// with a warning logged.
func ParseFilter(name string) (Filter, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		return DefaultFilter, true
	}
	for f, n := range filterNames {
		if strings.EqualFold(n, name) {
			return f, true
		}
	}
	log("filter", LogLevelWarning, "bad filter arg "+name)
	return DefaultFilter, false
}

// Filters returns all filter names
func Filters() []string {
	names := make([]string, 0, len(filterNames))
	for f := FilterTriangle; f <= FilterBessel; f++ {
		names = append(names, filterNames[f])
	}
	return names
}

// Interlace image interlace scheme for progressive display
type Interlace int

// Interlace enum
const (
	InterlaceNone Interlace = iota
	InterlaceLine
	InterlacePlane
	InterlacePartition
	// InterlaceOther is reported for schemes outside this table e.g. GIF or PNG
	InterlaceOther
)

var interlaceNames = map[Interlace]string{
	InterlaceNone:      "none",
	InterlaceLine:      "line",
	InterlacePlane:     "plane",
	InterlacePartition: "partition",
	InterlaceOther:     "other",
}

// String implements fmt.Stringer
func (i Interlace) String() string {
	if name, ok := interlaceNames[i]; ok {
		return name
	}
	return interlaceNames[InterlaceOther]
}

// MarshalText implements encoding.TextMarshaler
func (i Interlace) MarshalText() ([]byte, error) {
	return []byte(i.String()), nil
}

func (i Interlace) interlaceType() imagick.InterlaceType {
	switch i {
	case InterlaceLine:
		return imagick.INTERLACE_LINE
	case InterlacePlane:
		return imagick.INTERLACE_PLANE
	case InterlacePartition:
		return imagick.INTERLACE_PARTITION
	}
	return imagick.INTERLACE_NO
}

func interlaceFromType(t imagick.InterlaceType) Interlace {
	switch t {
	case imagick.INTERLACE_NO, imagick.INTERLACE_UNDEFINED:
		return InterlaceNone
	case imagick.INTERLACE_LINE:
		return InterlaceLine
	case imagick.INTERLACE_PLANE:
		return InterlacePlane
	case imagick.INTERLACE_PARTITION:
		return InterlacePartition
	}
	return InterlaceOther
}

// ParseInterlace looks up an interlace scheme by case-insensitive name.
// Empty, "none" and "false" give InterlaceNone, unknown names give
// InterlaceNone with a warning logged.
func ParseInterlace(name string) (Interlace, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "none", "no", "false":
		return InterlaceNone, true
	case "line":
		return InterlaceLine, true
	case "plane":
		return InterlacePlane, true
	case "partition":
		return InterlacePartition, true
	}
	log("interlace", LogLevelWarning, "bad interlace arg "+name)
	return InterlaceNone, false
}

type compressionEntry struct {
	ct   imagick.CompressionType
	name string
}

var compressionTypes = []compressionEntry{
	{imagick.COMPRESSION_NO, "None"},
	{imagick.COMPRESSION_BZIP, "BZip"},
	{imagick.COMPRESSION_DXT1, "DXT1"},
	{imagick.COMPRESSION_DXT3, "DXT3"},
	{imagick.COMPRESSION_DXT5, "DXT5"},
	{imagick.COMPRESSION_FAX, "Fax"},
	{imagick.COMPRESSION_GROUP4, "Group4"},
	{imagick.COMPRESSION_JPEG, "JPEG"},
	{imagick.COMPRESSION_JPEG2000, "JPEG2000"},
	{imagick.COMPRESSION_LOSSLESS_JPEG, "LosslessJPEG"},
	{imagick.COMPRESSION_LZW, "LZW"},
	{imagick.COMPRESSION_RLE, "RLE"},
	{imagick.COMPRESSION_ZIP, "Zip"},
	{imagick.COMPRESSION_ZIPS, "ZipS"},
	{imagick.COMPRESSION_PIZ, "Piz"},
	{imagick.COMPRESSION_PXR24, "Pxr24"},
	{imagick.COMPRESSION_B44, "B44"},
	{imagick.COMPRESSION_B44A, "B44A"},
	{imagick.COMPRESSION_LZMA, "LZMA"},
	{imagick.COMPRESSION_JBIG1, "JBIG1"},
	{imagick.COMPRESSION_JBIG2, "JBIG2"},
}

// Compression is a named image compression type e.g. "JPEG" or "Zip".
// Unknown names are "Undefined".
type Compression string

// CompressionUndefined leaves compression to the encoder
const CompressionUndefined Compression = "Undefined"

func compressionFromType(t imagick.CompressionType) Compression {
	for _, e := range compressionTypes {
		if e.ct == t {
			return Compression(e.name)
		}
	}
	return CompressionUndefined
}

func (c Compression) compressionType() imagick.CompressionType {
	for _, e := range compressionTypes {
		if strings.EqualFold(e.name, string(c)) {
			return e.ct
		}
	}
	return imagick.COMPRESSION_UNDEFINED
}

// ParseCompression looks up a compression by case-insensitive name
func ParseCompression(name string) (Compression, bool) {
	for _, e := range compressionTypes {
		if strings.EqualFold(e.name, name) {
			return Compression(e.name), true
		}
	}
	log("compression", LogLevelWarning, "bad compression arg "+name)
	return CompressionUndefined, false
}

type colorspaceEntry struct {
	cs   imagick.ColorspaceType
	name string
}

var colorspaces = []colorspaceEntry{
	{imagick.COLORSPACE_RGB, "RGB"},
	{imagick.COLORSPACE_GRAY, "GRAY"},
	{imagick.COLORSPACE_TRANSPARENT, "Transparent"},
	{imagick.COLORSPACE_OHTA, "OHTA"},
	{imagick.COLORSPACE_LAB, "Lab"},
	{imagick.COLORSPACE_XYZ, "XYZ"},
	{imagick.COLORSPACE_YCBCR, "YCbCr"},
	{imagick.COLORSPACE_YCC, "YCC"},
	{imagick.COLORSPACE_YIQ, "YIQ"},
	{imagick.COLORSPACE_YPBPR, "YPbPr"},
	{imagick.COLORSPACE_YUV, "YUV"},
	{imagick.COLORSPACE_CMYK, "CMYK"},
	{imagick.COLORSPACE_SRGB, "sRGB"},
	{imagick.COLORSPACE_HSB, "HSB"},
	{imagick.COLORSPACE_HSL, "HSL"},
	{imagick.COLORSPACE_HWB, "HWB"},
	{imagick.COLORSPACE_REC601LUMA, "Rec601Luma"},
	{imagick.COLORSPACE_REC601YCBCR, "Rec601YCbCr"},
	{imagick.COLORSPACE_REC709LUMA, "Rec709Luma"},
	{imagick.COLORSPACE_REC709YCBCR, "Rec709YCbCr"},
	{imagick.COLORSPACE_LOG, "Log"},
	{imagick.COLORSPACE_CMY, "CMY"},
}

// Colorspace is a named image colorspace e.g. "sRGB" or "CMYK".
// Unknown names are "Undefined".
type Colorspace string

// ColorspaceUndefined unknown colorspace
const ColorspaceUndefined Colorspace = "Undefined"

func colorspaceFromType(t imagick.ColorspaceType) Colorspace {
	for _, e := range colorspaces {
		if e.cs == t {
			return Colorspace(e.name)
		}
	}
	return ColorspaceUndefined
}

func (c Colorspace) colorspaceType() imagick.ColorspaceType {
	for _, e := range colorspaces {
		if strings.EqualFold(e.name, string(c)) {
			return e.cs
		}
	}
	return imagick.COLORSPACE_UNDEFINED
}

// ParseColorspace looks up a colorspace by case-insensitive name
func ParseColorspace(name string) (Colorspace, bool) {
	for _, e := range colorspaces {
		if strings.EqualFold(e.name, name) {
			return Colorspace(e.name), true
		}
	}
	log("colorspace", LogLevelWarning, "bad colorspace arg "+name)
	return ColorspaceUndefined, false
}
