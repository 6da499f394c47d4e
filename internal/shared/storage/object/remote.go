package object

import (
	"fmt"
	"strings"
)

// NormalizePrefix trims whitespace and slashes from a key prefix.
func NormalizePrefix(prefix string) string {
	return strings.Trim(strings.TrimSpace(prefix), "/")
}

// JoinKey joins a prefix and key with exactly one slash.
func JoinKey(prefix, key string) string {
	cleanPrefix := strings.Trim(prefix, "/")
	cleanKey := strings.TrimLeft(key, "/")
	if cleanPrefix == "" {
		return cleanKey
	}
	if cleanKey == "" {
		return cleanPrefix
	}
	return cleanPrefix + "/" + cleanKey
}

// RemoteKey builds the object key remote backends write a week's menu to.
func RemoteKey(prefix string, week int, id string) string {
	return JoinKey(NormalizePrefix(prefix), fmt.Sprintf("week%d-%s.pdf", week, id))
}

// JoinURL appends key to a public base URL.
func JoinURL(base, key string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(key, "/")
}

// OwnsRemote reports whether ref was produced by a remote backend writing under prefix.
func OwnsRemote(prefix string, ref Reference) bool {
	if ref.Path == "" || ref.URL == "" || strings.HasPrefix(ref.Path, "/") {
		return false
	}
	prefix = NormalizePrefix(prefix)
	return prefix == "" || strings.HasPrefix(ref.Path, prefix+"/")
}
