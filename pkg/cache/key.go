package cache

import "strings"

// KeyPrefix namespaces location profiles within the shared cache.
const KeyPrefix = "location:"

// Key normalizes a free-text location into a cache key: lowercased,
// whitespace runs collapsed to "_", prefixed with "location:". "Austin, TX"
// and " austin,  tx " both map to "location:austin,_tx".
func Key(location string) string {
	fields := strings.Fields(strings.ToLower(location))
	return KeyPrefix + strings.Join(fields, "_")
}
