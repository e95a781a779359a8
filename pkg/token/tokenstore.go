package tokenstore

import "sync"

// in-memory token revocation store. For production use Redis or DB.
var (
	mu      sync.RWMutex
	revoked = map[string]struct{}{}
)

// Revoke marks a token id as logged out.
func Revoke(jti string) {
	if jti == "" {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	revoked[jti] = struct{}{}
}

// IsRevoked reports whether a token id has been revoked.
func IsRevoked(jti string) bool {
	if jti == "" {
		return false
	}
	mu.RLock()
	defer mu.RUnlock()
	_, ok := revoked[jti]
	return ok
}

// Reset clears all revocations. Used by tests.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	revoked = map[string]struct{}{}
}
