package goSession

import "strings"

// matchesPrefix reports whether path is prefix or lies below it.
func matchesPrefix(path, prefix string) bool {
	if !strings.HasPrefix(path, prefix) {
		return false
	}
	if len(path) == len(prefix) || strings.HasSuffix(prefix, "/") {
		return true
	}
	return path[len(prefix)] == '/'
}

func matchesAny(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if matchesPrefix(path, p) {
			return true
		}
	}
	return false
}

// IsBypassed reports whether path skips the session check entirely.
func (g *Gate) IsBypassed(path string) bool {
	return matchesAny(path, g.config.Routes.BypassPrefixes)
}

// IsProtected reports whether path requires a session. Bypass wins over protection.
func (g *Gate) IsProtected(path string) bool {
	return !g.IsBypassed(path) && matchesAny(path, g.config.Routes.ProtectedPrefixes)
}
