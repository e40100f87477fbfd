// Package codec turns serialized records into opaque strings for the key-value
// store and back.
//
// Values are sealed with XChaCha20-Poly1305 and base64 encoded. When sealing is
// impossible the plaintext is stored behind SentinelPrefix so it can still be
// read back and migrated later.
package codec

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	// SentinelPrefix marks a stored value as plaintext.
	SentinelPrefix = "__tl_plain__:"

	// MinEncryptedLength is the shortest value IsEncrypted accepts without a sentinel.
	// A sealed empty string is already longer than this.
	MinEncryptedLength = 24

	// KeySize is the symmetric key length in bytes.
	KeySize = chacha20poly1305.KeySize

	formatVersion byte = 1

	developmentKeySeed = "tutorledger development key - not secret"
)

var (
	// ErrDecode is returned when a value cannot be turned back into plaintext.
	ErrDecode = errors.New("failed to decode value")

	// ErrKeyUnavailable means no key could be loaded, generated or derived.
	ErrKeyUnavailable = errors.New("encryption key unavailable")
)

// Options configures a Cipher.
type Options struct {
	// AllowDevelopmentKey lets the cipher fall back to a fixed, non-secret key
	// when the vault is unusable. Never enable it in production.
	AllowDevelopmentKey bool

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Rand defaults to crypto/rand.Reader.
	Rand io.Reader
}

// Cipher encrypts and decrypts stored values with a key kept in a KeyVault.
// The key is loaded once and cached for the lifetime of the Cipher.
type Cipher struct {
	vault  KeyVault
	opts   Options
	logger *slog.Logger

	mu     sync.Mutex
	key    []byte
	keyErr error
	loaded bool
}

// New creates a Cipher. The vault is not touched until the first Encrypt or Decrypt.
func New(vault KeyVault, opts Options) *Cipher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Rand == nil {
		opts.Rand = rand.Reader
	}
	return &Cipher{vault: vault, opts: opts, logger: opts.Logger}
}

// Encrypt seals plaintext. It never fails: if sealing is impossible the
// sentinel-prefixed plaintext is returned instead.
func (c *Cipher) Encrypt(ctx context.Context, plaintext string) string {
	key, err := c.loadKey(ctx)
	if err != nil {
		c.logger.Warn("Encryption unavailable, storing plaintext", "error", err)
		return SentinelPrefix + plaintext
	}

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		c.logger.Warn("Failed to create cipher, storing plaintext", "error", err)
		return SentinelPrefix + plaintext
	}

	buf := make([]byte, 1+aead.NonceSize(), 1+aead.NonceSize()+len(plaintext)+aead.Overhead())
	buf[0] = formatVersion
	if _, err := io.ReadFull(c.opts.Rand, buf[1:]); err != nil {
		c.logger.Warn("Failed to generate nonce, storing plaintext", "error", err)
		return SentinelPrefix + plaintext
	}

	sealed := aead.Seal(buf, buf[1:], []byte(plaintext), []byte{formatVersion})
	return base64.StdEncoding.EncodeToString(sealed)
}

// Decrypt reverses Encrypt. Sentinel-prefixed values are returned verbatim
// without the prefix.
func (c *Cipher) Decrypt(ctx context.Context, opaque string) (string, error) {
	if plain, ok := strings.CutPrefix(opaque, SentinelPrefix); ok {
		return plain, nil
	}

	raw, err := base64.StdEncoding.DecodeString(opaque)
	if err != nil {
		return "", fmt.Errorf("%w: invalid encoding: %v", ErrDecode, err)
	}
	if len(raw) < 1+chacha20poly1305.NonceSizeX+chacha20poly1305.Overhead {
		return "", fmt.Errorf("%w: value too short", ErrDecode)
	}
	if raw[0] != formatVersion {
		return "", fmt.Errorf("%w: unknown format version %d", ErrDecode, raw[0])
	}

	key, err := c.loadKey(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrDecode, err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}

	nonce := raw[1 : 1+aead.NonceSize()]
	plain, err := aead.Open(nil, nonce, raw[1+aead.NonceSize():], raw[:1])
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecode, err)
	}
	return string(plain), nil
}

// IsEncrypted guesses whether value was produced by Encrypt.
// It only picks the migration path and must not be used for security decisions:
// short plaintext that happens to be base64-shaped is misclassified.
func IsEncrypted(value string) bool {
	if strings.HasPrefix(value, SentinelPrefix) {
		return true
	}
	if len(value) < MinEncryptedLength {
		return false
	}
	return isBase64(value)
}

func isBase64(s string) bool {
	padding := 0
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch {
		case ch == '=':
			padding++
		case padding > 0:
			return false
		case ch >= 'A' && ch <= 'Z', ch >= 'a' && ch <= 'z', ch >= '0' && ch <= '9', ch == '+', ch == '/':
		default:
			return false
		}
	}
	return padding <= 2
}

// loadKey returns the cached key, loading or generating it on first use.
func (c *Cipher) loadKey(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.loaded {
		return c.key, c.keyErr
	}

	key, err := c.vaultKey(ctx)
	if err != nil {
		if c.opts.AllowDevelopmentKey {
			c.logger.Warn("Key vault unavailable, using development key", "error", err)
			key, err = developmentKey()
		} else {
			err = fmt.Errorf("%w: %w", ErrKeyUnavailable, err)
		}
	}

	c.key, c.keyErr, c.loaded = key, err, true
	return c.key, c.keyErr
}

func (c *Cipher) vaultKey(ctx context.Context) ([]byte, error) {
	key, err := c.vault.Load(ctx)
	if err == nil {
		if len(key) != KeySize {
			return nil, fmt.Errorf("stored key has %d bytes, want %d", len(key), KeySize)
		}
		return key, nil
	}
	if !errors.Is(err, ErrKeyNotFound) {
		return nil, err
	}

	key = make([]byte, KeySize)
	if _, err := io.ReadFull(c.opts.Rand, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}
	if err := c.vault.Save(ctx, key); err != nil {
		return nil, fmt.Errorf("failed to save key: %w", err)
	}
	c.logger.Info("Generated new encryption key")
	return key, nil
}

func developmentKey() ([]byte, error) {
	key := make([]byte, KeySize)
	r := hkdf.New(sha256.New, []byte(developmentKeySeed), nil, []byte("tutorledger/v1"))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("failed to derive development key: %w", err)
	}
	return key, nil
}
