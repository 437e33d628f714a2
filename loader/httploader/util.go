package httploader

import (
	"math/rand"
	"net/http"
	"net/url"
	"path"
	"strings"
)

// randomProxyFunc picks a random proxy for requests to hosts,
// every host when hosts is empty
func randomProxyFunc(proxyURLs, hosts string) func(*http.Request) (*url.URL, error) {
	var urls []*url.URL
	var allowedSources []string
	for _, split := range strings.Split(proxyURLs, ",") {
		if split = strings.TrimSpace(split); split == "" {
			continue
		}
		if u, err := url.Parse(split); err == nil {
			urls = append(urls, u)
		}
	}
	for _, host := range strings.Split(hosts, ",") {
		if host = strings.TrimSpace(host); host != "" {
			allowedSources = append(allowedSources, host)
		}
	}
	return func(r *http.Request) (*url.URL, error) {
		if len(urls) == 0 || !isURLAllowed(r.URL, allowedSources) {
			return nil, nil
		}
		return urls[rand.Intn(len(urls))], nil
	}
}

func isURLAllowed(u *url.URL, allowedSources []string) bool {
	if len(allowedSources) == 0 {
		return true
	}
	for _, source := range allowedSources {
		if matched, e := path.Match(source, u.Host); matched && e == nil {
			return true
		}
	}
	return false
}

func parseContentType(contentType string) string {
	if idx := strings.Index(contentType, ";"); idx > -1 {
		contentType = contentType[:idx]
	}
	return strings.TrimSpace(strings.ToLower(contentType))
}

func validateContentType(contentType string, accepts []string) bool {
	if len(accepts) == 0 {
		return true
	}
	contentType = parseContentType(contentType)
	for _, accept := range accepts {
		if ok, err := path.Match(accept, contentType); ok && err == nil {
			return true
		}
	}
	return false
}
