package httploader

import (
	"crypto/tls"
	"net/http"
	"strings"
)

// Option HTTPLoader option
type Option func(h *HTTPLoader)

// WithTransport with custom transport option
func WithTransport(transport http.RoundTripper) Option {
	return func(h *HTTPLoader) {
		if transport != nil {
			h.Transport = transport
		}
	}
}

// WithInsecureSkipVerifyTransport with transport skipping TLS verification
func WithInsecureSkipVerifyTransport(enable bool) Option {
	return func(h *HTTPLoader) {
		if enable {
			transport := http.DefaultTransport.(*http.Transport).Clone()
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
			h.Transport = transport
		}
	}
}

// WithProxyTransport with random proxy from comma separated proxyURLs,
// applied to the comma separated hosts or all hosts if empty
func WithProxyTransport(proxyURLs, hosts string) Option {
	return func(h *HTTPLoader) {
		if proxyURLs == "" {
			return
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if t, ok := h.Transport.(*http.Transport); ok {
			transport = t.Clone()
		}
		transport.Proxy = randomProxyFunc(proxyURLs, hosts)
		h.Transport = transport
	}
}

// WithForwardHeaders with request headers forwarded to the source, "*" forwards all
func WithForwardHeaders(headers ...string) Option {
	return func(h *HTTPLoader) {
		for _, raw := range headers {
			for _, header := range strings.Split(raw, ",") {
				if header = strings.TrimSpace(header); header != "" {
					h.ForwardHeaders = append(h.ForwardHeaders, header)
				}
			}
		}
	}
}

// WithForwardUserAgent forwards the client User-Agent
func WithForwardUserAgent(enabled bool) Option {
	return func(h *HTTPLoader) {
		if enabled {
			h.ForwardHeaders = append(h.ForwardHeaders, "User-Agent")
		}
	}
}

// WithOverrideHeader with header set on every source request
func WithOverrideHeader(name, value string) Option {
	return func(h *HTTPLoader) {
		h.OverrideHeaders[name] = value
	}
}

// WithAllowedSources with comma separated host glob patterns
func WithAllowedSources(hosts ...string) Option {
	return func(h *HTTPLoader) {
		for _, raw := range hosts {
			for _, host := range strings.Split(raw, ",") {
				if host = strings.TrimSpace(host); host != "" {
					h.AllowedSources = append(h.AllowedSources, host)
				}
			}
		}
	}
}

// WithAccept with comma separated content type glob patterns
func WithAccept(contentTypes string) Option {
	return func(h *HTTPLoader) {
		for _, v := range strings.Split(contentTypes, ",") {
			if v = parseContentType(v); v != "" {
				h.Accept = append(h.Accept, v)
			}
		}
	}
}

// WithDefaultScheme with scheme prepended to keys without one e.g. https
func WithDefaultScheme(scheme string) Option {
	return func(h *HTTPLoader) {
		h.DefaultScheme = strings.TrimSuffix(strings.ToLower(scheme), "://")
	}
}

// WithMaxAllowedSize with maximum source size in bytes
func WithMaxAllowedSize(maxAllowedSize int) Option {
	return func(h *HTTPLoader) {
		if maxAllowedSize > 0 {
			h.MaxAllowedSize = maxAllowedSize
		}
	}
}
