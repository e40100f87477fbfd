package codec

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrKeyNotFound is returned by a KeyVault that has never stored a key.
var ErrKeyNotFound = errors.New("encryption key not found")

// KeyVault is secure storage for the single symmetric key.
// On a phone this is the hardware-backed keystore; FileVault is the desktop stand-in.
type KeyVault interface {
	// Load returns the stored key, or ErrKeyNotFound.
	Load(ctx context.Context) ([]byte, error)

	// Save persists the key, replacing any previous one.
	Save(ctx context.Context, key []byte) error
}

// FileVault keeps the key hex-encoded in a file readable only by the owner.
type FileVault struct {
	Path string
}

// Ensure FileVault implements KeyVault
var _ KeyVault = (*FileVault)(nil)

// NewFileVault creates a vault backed by the file at path.
func NewFileVault(path string) *FileVault {
	return &FileVault{Path: path}
}

// Load reads and decodes the key file.
func (v *FileVault) Load(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(v.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read key file: %w", err)
	}

	key, err := hex.DecodeString(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, fmt.Errorf("failed to decode key file: %w", err)
	}
	return key, nil
}

// Save writes the key file with 0600 permissions, creating the directory if needed.
func (v *FileVault) Save(ctx context.Context, key []byte) error {
	if err := os.MkdirAll(filepath.Dir(v.Path), 0700); err != nil {
		return fmt.Errorf("failed to create key directory: %w", err)
	}

	tmp := v.Path + ".tmp"
	if err := os.WriteFile(tmp, []byte(hex.EncodeToString(key)), 0600); err != nil {
		return fmt.Errorf("failed to write key file: %w", err)
	}
	if err := os.Rename(tmp, v.Path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to install key file: %w", err)
	}
	return nil
}
