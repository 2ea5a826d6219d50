// Package token caches OAuth2 access tokens for the remote connectors,
// sealed behind AES-256-GCM when an encryption key is configured. It is
// backed by store.Store's SyncState rows
// rather than the OS keyring: sync runs unattended, and keyring access
// cannot be assumed available there.
package token

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/krasmussen37/ess/internal/store"
)

// EnvelopeVersion is the only envelope shape this cache writes or reads.
const EnvelopeVersion = 1

// KeyBytes is the required length of the AES-256 encryption key.
const KeyBytes = 32

// NonceBytes is the GCM nonce length.
const NonceBytes = 12

// expirySkew discards a cached token this long before its stated expiry
//.
const expirySkew = 60 * time.Second

// AccessToken is the cached shape: an access token plus its absolute
// expiry, serialized as the envelope's plaintext payload.
type AccessToken struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// Expired reports whether the token is within its expiry skew.
func (t AccessToken) Expired() bool {
	return !t.ExpiresAt.After(time.Now().Add(expirySkew))
}

// envelope is the on-disk (in SyncState) encrypted shape.
type envelope struct {
	Version       int    `json:"version"`
	NonceHex      string `json:"nonce_hex"`
	CiphertextHex string `json:"ciphertext_hex"`
}

// Cache reads and writes AccessToken values under a provider's SyncState
// key, encrypting them when a key is configured and refusing to persist
// them at all otherwise.
type Cache struct {
	store store.Store
	key   []byte // nil: encryption unavailable, tokens are not persisted
}

// NewCache builds a Cache. key must be nil or exactly KeyBytes long.
func NewCache(s store.Store, key []byte) (*Cache, error) {
	if key != nil && len(key) != KeyBytes {
		return nil, fmt.Errorf("token cache key must be %d bytes, got %d", KeyBytes, len(key))
	}
	return &Cache{store: s, key: key}, nil
}

// Load returns the cached token for key, or (nil, nil) if absent, expired,
// unreadable, or encryption is unavailable. Unreadable or expired entries
// are cleared as a side effect so the caller obtains a fresh token.
func (c *Cache) Load(ctx context.Context, key string) (*AccessToken, error) {
	raw, ok, err := c.store.GetSyncState(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to read token cache %s: %w", key, err)
	}
	if !ok || raw == "" {
		return nil, nil
	}

	if c.key == nil {
		if err := c.store.ClearSyncState(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to clear token cache %s: %w", key, err)
		}
		return nil, nil
	}

	tok, err := decrypt(raw, c.key)
	if err != nil {
		// Legacy migration: the cached value may predate envelope
		// encryption and be a plain JSON AccessToken.
		var legacy AccessToken
		if jsonErr := json.Unmarshal([]byte(raw), &legacy); jsonErr == nil && legacy.AccessToken != "" {
			if storeErr := c.Store(ctx, key, legacy); storeErr != nil {
				return nil, storeErr
			}
			tok = &legacy
		} else {
			if clearErr := c.store.ClearSyncState(ctx, key); clearErr != nil {
				return nil, fmt.Errorf("failed to clear unreadable token cache %s: %w", key, clearErr)
			}
			return nil, nil
		}
	}

	if tok.Expired() {
		if err := c.store.ClearSyncState(ctx, key); err != nil {
			return nil, fmt.Errorf("failed to clear expired token cache %s: %w", key, err)
		}
		return nil, nil
	}

	return tok, nil
}

// Store persists tok under key, encrypted. If no encryption key is
// configured this is a silent no-op.
func (c *Cache) Store(ctx context.Context, key string, tok AccessToken) error {
	if c.key == nil {
		return nil
	}
	raw, err := encrypt(tok, c.key)
	if err != nil {
		return fmt.Errorf("failed to encrypt token cache %s: %w", key, err)
	}
	if err := c.store.SetSyncState(ctx, key, raw); err != nil {
		return fmt.Errorf("failed to write token cache %s: %w", key, err)
	}
	return nil
}

// ParseKeyHex decodes a 64-character hex string into a 32-byte key, the
// shape of ESS_TOKEN_CACHE_KEY.
func ParseKeyHex(hexKey string) ([]byte, error) {
	key, err := decodeHex(hexKey)
	if err != nil {
		return nil, fmt.Errorf("token cache key must be %d hex characters (%d bytes): %w", KeyBytes*2, KeyBytes, err)
	}
	if len(key) != KeyBytes {
		return nil, fmt.Errorf("token cache key must be %d bytes, got %d", KeyBytes, len(key))
	}
	return key, nil
}
