// Package middleware provides the gin middleware chain used by the
// diarization HTTP server.
package middleware

import "strings"

// probePaths are polled by orchestrators and are excluded from access logs
// and rate limiting.
var probePaths = []string{"/health", "/livez", "/readyz", "/metrics"}

func isProbePath(path string) bool {
	for _, p := range probePaths {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
