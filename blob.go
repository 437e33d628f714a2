package wandkit

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"sync"
	"time"
)

// BlobType blob content type
type BlobType int

// BlobType enum
const (
	BlobTypeUnknown BlobType = iota
	BlobTypeEmpty
	BlobTypeJSON
	BlobTypeJPEG
	BlobTypePNG
	BlobTypeGIF
	BlobTypeWEBP
	BlobTypeTIFF
	BlobTypeBMP
	BlobTypeAVIF
)

// Stat blob attributes reported by storage
type Stat struct {
	ModifiedTime time.Time
	ETag         string
	Size         int64
}

// Blob abstraction for file path, bytes data and lazily opened readers.
// Content is read at most once.
type Blob struct {
	newReader   func() (io.ReadCloser, int64, error)
	filepath    string
	once        sync.Once
	buf         []byte
	err         error
	blobType    BlobType
	contentType string

	Stat *Stat
}

// NewBlob creates Blob from a reader factory, called on first read
func NewBlob(newReader func() (reader io.ReadCloser, size int64, err error)) *Blob {
	return &Blob{newReader: newReader}
}

// NewBlobFromFile creates Blob from file path
func NewBlobFromFile(filepath string) *Blob {
	return &Blob{filepath: filepath}
}

// NewBlobFromBytes creates Blob from bytes
func NewBlobFromBytes(buf []byte) *Blob {
	if buf == nil {
		buf = []byte{}
	}
	return &Blob{buf: buf}
}

// NewBlobFromJSONMarshal creates JSON Blob from value
func NewBlobFromJSONMarshal(v any) *Blob {
	buf, err := json.Marshal(v)
	b := &Blob{buf: buf, err: err}
	b.once.Do(b.sniff)
	return b
}

// NewEmptyBlob creates an empty Blob
func NewEmptyBlob() *Blob {
	return &Blob{buf: []byte{}}
}

var (
	jpegHeader = []byte("\xFF\xD8\xFF")
	pngHeader  = []byte("\x89PNG")
	gifHeader  = []byte("GIF8")
	riffHeader = []byte("RIFF")
	webpHeader = []byte("WEBP")
	tiffLE     = []byte("II*\x00")
	tiffBE     = []byte("MM\x00*")
	bmpHeader  = []byte("BM")
	ftyp       = []byte("ftyp")
	avif       = []byte("avif")
)

func (b *Blob) init() {
	b.once.Do(func() {
		if b.buf == nil {
			b.buf, b.err = b.read()
		}
		b.sniff()
	})
}

func (b *Blob) read() ([]byte, error) {
	if b.filepath != "" {
		buf, err := os.ReadFile(b.filepath)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return buf, err
	}
	if b.newReader == nil {
		return nil, nil
	}
	reader, size, err := b.newReader()
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = reader.Close()
	}()
	if size > 0 {
		buf := make([]byte, size)
		n, err := io.ReadFull(reader, buf)
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
			return nil, err
		}
		return buf[:n], nil
	}
	return io.ReadAll(reader)
}

func (b *Blob) sniff() {
	buf := b.buf
	switch {
	case len(buf) == 0:
		b.blobType = BlobTypeEmpty
	case bytes.HasPrefix(buf, jpegHeader):
		b.blobType = BlobTypeJPEG
	case bytes.HasPrefix(buf, pngHeader):
		b.blobType = BlobTypePNG
	case bytes.HasPrefix(buf, gifHeader):
		b.blobType = BlobTypeGIF
	case len(buf) >= 12 && bytes.HasPrefix(buf, riffHeader) && bytes.Equal(buf[8:12], webpHeader):
		b.blobType = BlobTypeWEBP
	case bytes.HasPrefix(buf, tiffLE) || bytes.HasPrefix(buf, tiffBE):
		b.blobType = BlobTypeTIFF
	case bytes.HasPrefix(buf, bmpHeader):
		b.blobType = BlobTypeBMP
	case len(buf) >= 12 && bytes.Equal(buf[4:8], ftyp) && bytes.Equal(buf[8:12], avif):
		b.blobType = BlobTypeAVIF
	case buf[0] == '{' || buf[0] == '[':
		b.blobType = BlobTypeJSON
	}
	if b.contentType == "" {
		b.contentType = contentTypes[b.blobType]
		if b.contentType == "" {
			b.contentType = http.DetectContentType(buf)
		}
	}
}

var contentTypes = map[BlobType]string{
	BlobTypeJSON: "application/json",
	BlobTypeJPEG: "image/jpeg",
	BlobTypePNG:  "image/png",
	BlobTypeGIF:  "image/gif",
	BlobTypeWEBP: "image/webp",
	BlobTypeTIFF: "image/tiff",
	BlobTypeBMP:  "image/bmp",
	BlobTypeAVIF: "image/avif",
}

// ReadAll reads the whole blob content
func (b *Blob) ReadAll() ([]byte, error) {
	b.init()
	return b.buf, b.err
}

// NewReader returns a reader of the blob content and its size
func (b *Blob) NewReader() (io.ReadCloser, int64, error) {
	b.init()
	if b.err != nil {
		return nil, 0, b.err
	}
	return io.NopCloser(bytes.NewReader(b.buf)), int64(len(b.buf)), nil
}

// Err returns the error of reading the blob
func (b *Blob) Err() error {
	b.init()
	return b.err
}

// IsEmpty indicates the blob has no content
func (b *Blob) IsEmpty() bool {
	b.init()
	return len(b.buf) == 0
}

// BlobType returns the sniffed blob type
func (b *Blob) BlobType() BlobType {
	b.init()
	return b.blobType
}

// ContentType returns the content type, sniffed unless set
func (b *Blob) ContentType() string {
	b.init()
	return b.contentType
}

// SetContentType overrides the sniffed content type
func (b *Blob) SetContentType(contentType string) {
	b.contentType = contentType
}

// FilePath returns the file path if the blob is file based
func (b *Blob) FilePath() string {
	return b.filepath
}

func isEmpty(b *Blob) bool {
	return b == nil || b.IsEmpty()
}
