// Package httploader loads source images from remote HTTP(S) URLs
package httploader

import (
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/cshum/wandkit"
)

// HTTPLoader loads image keys that are absolute URLs
type HTTPLoader struct {
	// The Transport used to request images.
	// If nil, http.DefaultTransport is used.
	Transport http.RoundTripper

	ForwardHeaders []string

	OverrideHeaders map[string]string

	// AllowedSources list of host names allowed to load from,
	// supports glob patterns such as *.google.com
	AllowedSources []string

	// Accept content types allowed, supports glob patterns such as image/*
	Accept []string

	// DefaultScheme prepended to keys without scheme, empty passes them on
	DefaultScheme string

	MaxAllowedSize int
}

// New creates HTTPLoader
func New(options ...Option) *HTTPLoader {
	h := &HTTPLoader{
		OverrideHeaders: map[string]string{},
	}
	for _, option := range options {
		option(h)
	}
	return h
}

// Get implements wandkit.Loader interface
func (h *HTTPLoader) Get(r *http.Request, image string) (*wandkit.Blob, error) {
	if image == "" {
		return nil, wandkit.ErrPass
	}
	if h.DefaultScheme != "" && !strings.Contains(image, "://") {
		image = h.DefaultScheme + "://" + image
	}
	u, err := url.Parse(image)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return nil, wandkit.ErrPass
	}
	if !isURLAllowed(u, h.AllowedSources) {
		return nil, wandkit.ErrPass
	}
	client := &http.Client{Transport: h.Transport}
	if h.MaxAllowedSize > 0 {
		req, err := h.newRequest(r, http.MethodHead, u.String())
		if err != nil {
			return nil, err
		}
		resp, err := client.Do(req)
		if err != nil {
			return nil, err
		}
		_ = resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 206 {
			return nil, wandkit.NewErrorFromStatusCode(resp.StatusCode)
		}
		contentLength, _ := strconv.Atoi(resp.Header.Get("Content-Length"))
		if contentLength > h.MaxAllowedSize {
			return nil, wandkit.ErrMaxSizeExceeded
		}
	}
	req, err := h.newRequest(r, http.MethodGet, u.String())
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return nil, wandkit.NewErrorFromStatusCode(resp.StatusCode)
	}
	if !validateContentType(resp.Header.Get("Content-Type"), h.Accept) {
		return nil, wandkit.ErrUnsupportedFormat
	}
	var body io.Reader = resp.Body
	if h.MaxAllowedSize > 0 {
		body = io.LimitReader(resp.Body, int64(h.MaxAllowedSize)+1)
	}
	buf, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if h.MaxAllowedSize > 0 && len(buf) > h.MaxAllowedSize {
		return nil, wandkit.ErrMaxSizeExceeded
	}
	return wandkit.NewBlobFromBytes(buf), nil
}

func (h *HTTPLoader) newRequest(r *http.Request, method, url string) (*http.Request, error) {
	req, err := http.NewRequestWithContext(r.Context(), method, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "wandkit/"+wandkit.Version)
	for _, header := range h.ForwardHeaders {
		if header == "*" {
			req.Header = r.Header.Clone()
			break
		}
		if _, ok := r.Header[http.CanonicalHeaderKey(header)]; ok {
			req.Header.Set(header, r.Header.Get(header))
		}
	}
	for key, value := range h.OverrideHeaders {
		req.Header.Set(key, value)
	}
	return req, nil
}
