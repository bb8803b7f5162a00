package handlers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	lru "github.com/hashicorp/golang-lru"
	"golang.org/x/crypto/bcrypt"
)

// ══════════════════════════════════════════════════════════════════════════════
// DEVICE KEY AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// DeviceKeyHeader carries the plain device key.
const DeviceKeyHeader = "X-Device-Key"

// ErrNoKeyHashes is returned when DeviceKeyAuth is built without hashes.
var ErrNoKeyHashes = errors.New("device auth: no key hashes configured")

// verifiedCacheSize bounds the number of remembered good keys.
const verifiedCacheSize = 128

// DeviceKeyAuth checks X-Device-Key against bcrypt hashes. Keys that
// matched once are remembered by SHA-256 digest so bcrypt runs only on
// the first request of each device.
type DeviceKeyAuth struct {
	hashes   [][]byte
	verified *lru.Cache
}

// NewDeviceKeyAuth creates an authenticator for the given bcrypt hashes.
func NewDeviceKeyAuth(hashes []string) (*DeviceKeyAuth, error) {
	if len(hashes) == 0 {
		return nil, ErrNoKeyHashes
	}
	out := make([][]byte, 0, len(hashes))
	for _, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, err
		}
		out = append(out, []byte(h))
	}
	cache, err := lru.New(verifiedCacheSize)
	if err != nil {
		return nil, err
	}
	return &DeviceKeyAuth{hashes: out, verified: cache}, nil
}

// IsValid reports whether key matches one of the hashes.
func (a *DeviceKeyAuth) IsValid(key string) bool {
	if key == "" {
		return false
	}
	sum := sha256.Sum256([]byte(key))
	digest := hex.EncodeToString(sum[:])
	if a.verified.Contains(digest) {
		return true
	}
	for _, h := range a.hashes {
		if bcrypt.CompareHashAndPassword(h, []byte(key)) == nil {
			a.verified.Add(digest, struct{}{})
			return true
		}
	}
	return false
}

// Middleware rejects requests without a valid device key.
func (a *DeviceKeyAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.Header.Get(DeviceKeyHeader)
		if key == "" {
			writeError(w, http.StatusUnauthorized, "missing device key")
			return
		}
		if !a.IsValid(key) {
			writeError(w, http.StatusUnauthorized, "invalid device key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// GENERIC MIDDLEWARE
// ══════════════════════════════════════════════════════════════════════════════

// RequestSizeLimitMiddleware limits the size of request bodies.
func RequestSizeLimitMiddleware(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeadersMiddleware adds security-related headers.
func SecurityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// MiddlewareFunc is a function that wraps an http.Handler.
type MiddlewareFunc func(http.Handler) http.Handler

// Chain applies middlewares so that the first one is the outermost.
func Chain(handler http.Handler, middlewares ...MiddlewareFunc) http.Handler {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return handler
}

// writeError uses the same {"error": ...} shape as the ingestion endpoints.
func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
