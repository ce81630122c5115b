package utils

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

var safeName = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._-]*$`)

// IsSafeName reports whether s can be used as a single path segment:
// document names and commit hashes end up in artifact paths.
func IsSafeName(s string) bool {
	return len(s) <= 128 && safeName.MatchString(s) && !strings.Contains(s, "..")
}

// ExtractIP returns the peer address of the request without its port.
// Forwarding headers are not read here; TrustedRealIP rewrites RemoteAddr
// for requests that arrive through a configured proxy.
func ExtractIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return strings.Trim(r.RemoteAddr, "[]")
	}
	return host
}
