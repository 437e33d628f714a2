package server

import (
	"errors"
	"net"
	"net/http"
	"net/netip"
	"strings"
)

var privatePrefixes = []netip.Prefix{
	netip.MustParsePrefix("127.0.0.0/8"),    // loopback
	netip.MustParsePrefix("10.0.0.0/8"),     // RFC 1918
	netip.MustParsePrefix("172.16.0.0/12"),  // RFC 1918
	netip.MustParsePrefix("192.168.0.0/16"), // RFC 1918
	netip.MustParsePrefix("169.254.0.0/16"), // link local
	netip.MustParsePrefix("100.64.0.0/10"),  // carrier grade NAT, RFC 6598
	netip.MustParsePrefix("::1/128"),        // loopback IPv6
	netip.MustParsePrefix("fc00::/7"),       // unique local IPv6
	netip.MustParsePrefix("fe80::/10"),      // link local IPv6
}

// IsPrivateIP reports whether address is loopback, link local or within a private network block
func IsPrivateIP(address string) (bool, error) {
	addr, err := netip.ParseAddr(address)
	if err != nil {
		return false, errors.New("address is not valid")
	}
	addr = addr.Unmap()
	for _, prefix := range privatePrefixes {
		if prefix.Contains(addr) {
			return true, nil
		}
	}
	return false, nil
}

// RealIP client IP address of the request for access logging.
// The first public X-Forwarded-For address wins, then X-Real-Ip, then the remote address.
func RealIP(r *http.Request) string {
	xRealIP := r.Header.Get("X-Real-Ip")
	xForwardedFor := r.Header.Get("X-Forwarded-For")
	if xRealIP == "" && xForwardedFor == "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	for _, address := range strings.Split(xForwardedFor, ",") {
		address = strings.TrimSpace(address)
		if isPrivate, err := IsPrivateIP(address); err == nil && !isPrivate {
			return address
		}
	}
	return xRealIP
}
