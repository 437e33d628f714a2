package magick

import (
	"fmt"
	"sync"

	"gopkg.in/gographics/imagick.v2/imagick"
)

// Wand owns a single MagickWand handle.
// Operations on a Wand are serialised, different Wands run concurrently.
type Wand struct {
	mw   *imagick.MagickWand
	lock sync.Mutex
	refs int
}

func newWand(mw *imagick.MagickWand) *Wand {
	return &Wand{mw: mw, refs: 1}
}

// NewFromFile reads image from file path.
// On failure no Wand is returned and the native handle is destroyed.
func NewFromFile(path string) (*Wand, error) {
	const op = "file->imagick"
	if path == "" {
		return nil, errorf(op, "empty file name")
	}
	mw := imagick.NewMagickWand()
	if err := mw.ReadImage(path); err != nil {
		err = withPathError(wrapError(op, err), path, false)
		mw.Destroy()
		log(op, LogLevelDebug, err.Error())
		return nil, err
	}
	return newWand(mw), nil
}

// NewFromBlob reads image from encoded bytes.
// On failure no Wand is returned and the native handle is destroyed.
func NewFromBlob(buf []byte) (*Wand, error) {
	const op = "packet->imagick"
	if len(buf) == 0 {
		return nil, errorf(op, "empty image buffer")
	}
	mw := imagick.NewMagickWand()
	if err := mw.ReadImageBlob(buf); err != nil {
		err = wrapError(op, err)
		mw.Destroy()
		log(op, LogLevelDebug, err.Error())
		return nil, err
	}
	return newWand(mw), nil
}

// do runs fn holding the wand lock, failing with ErrClosed once destroyed
func (w *Wand) do(fn func(mw *imagick.MagickWand) error) error {
	if w == nil {
		return ErrClosed
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.mw == nil {
		return ErrClosed
	}
	return fn(w.mw)
}

// Retain adds a reference
func (w *Wand) Retain() error {
	return w.do(func(_ *imagick.MagickWand) error {
		w.refs++
		return nil
	})
}

// Release drops a reference, destroying the native handle on the last one.
// Releasing a destroyed wand is a no-op.
func (w *Wand) Release() {
	if w == nil {
		return
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.mw == nil {
		return
	}
	w.refs--
	if w.refs <= 0 {
		w.destroy()
	}
}

// Close destroys the native handle regardless of outstanding references.
// Closing twice is a no-op.
func (w *Wand) Close() error {
	if w == nil {
		return nil
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	if w.mw != nil {
		w.destroy()
	}
	return nil
}

func (w *Wand) destroy() {
	w.mw.Destroy()
	w.mw = nil
	w.refs = 0
}

// Closed reports if the native handle has been destroyed
func (w *Wand) Closed() bool {
	if w == nil {
		return true
	}
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.mw == nil
}

// String implements fmt.Stringer
func (w *Wand) String() string {
	var s string
	err := w.do(func(mw *imagick.MagickWand) error {
		s = fmt.Sprintf("#<imagick %s %dx%d>",
			mw.GetImageFormat(), mw.GetImageWidth(), mw.GetImageHeight())
		return nil
	})
	if err != nil {
		return "#<imagick closed>"
	}
	return s
}

// Clone deep copies the wand into a new independent Wand
func (w *Wand) Clone() (*Wand, error) {
	var c *Wand
	err := w.do(func(mw *imagick.MagickWand) error {
		cw := mw.Clone()
		if cw == nil {
			return lastError("imagick/clone", mw)
		}
		c = newWand(cw)
		return nil
	})
	return c, err
}

// WriteFile writes image to file path, format is inferred from the extension
// unless set explicitly
func (w *Wand) WriteFile(path string) error {
	const op = "imagick->file"
	if path == "" {
		return errorf(op, "empty file name")
	}
	return w.do(func(mw *imagick.MagickWand) error {
		if err := mw.WriteImage(path); err != nil {
			return withPathError(wrapError(op, err), path, true)
		}
		return nil
	})
}

// Blob exports image as encoded bytes in its current format
func (w *Wand) Blob() ([]byte, error) {
	const op = "imagick->packet"
	var buf []byte
	err := w.do(func(mw *imagick.MagickWand) error {
		mw.ResetIterator()
		buf = mw.GetImageBlob()
		if len(buf) == 0 {
			return lastError(op, mw)
		}
		return nil
	})
	return buf, err
}
