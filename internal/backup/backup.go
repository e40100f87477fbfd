// Package backup reads and writes the portable snapshot file used to move a
// complete data set between installs.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"

	"github.com/mmynk/tutorledger/internal/codec"
	"github.com/mmynk/tutorledger/internal/models"
	"github.com/mmynk/tutorledger/internal/persistence"
)

// FormatVersion is the snapshot version written by Encode.
const FormatVersion = 1

var (
	// ErrInvalidBackup means the file is readable but is not a snapshot.
	ErrInvalidBackup = errors.New("invalid backup file")

	// ErrCorruptBackup means an encrypted file could not be decrypted.
	ErrCorruptBackup = errors.New("corrupt backup file")
)

var jsonAPI = sonic.Config{
	SortMapKeys: true,
}.Froze()

// Snapshot is the backup file contents.
type Snapshot struct {
	Version   int            `json:"version"`
	Timestamp time.Time      `json:"timestamp"`
	Data      models.Dataset `json:"data"`
}

// wireSnapshot distinguishes a missing students array from an empty one.
type wireSnapshot struct {
	Version   int    `json:"version"`
	Timestamp string `json:"timestamp"`
	Data      *struct {
		Teacher  *models.Teacher  `json:"teacher"`
		Students *[]models.Student `json:"students"`
		Lessons  []models.Lesson  `json:"lessons"`
		Payments []models.Payment `json:"payments"`
		Groups   []models.Group   `json:"groups"`
	} `json:"data"`
}

// Decrypter opens files that were stored encrypted.
type Decrypter interface {
	Decrypt(ctx context.Context, opaque string) (string, error)
}

// Source supplies the collections to export.
type Source interface {
	Load(ctx context.Context) persistence.Snapshot
}

// Restorer replaces every collection with an imported data set.
type Restorer interface {
	ReplaceAll(ctx context.Context, data models.Dataset) error
}

// Export builds a snapshot of everything except settings.
func Export(ctx context.Context, src Source, now time.Time) Snapshot {
	state := src.Load(ctx)
	return Snapshot{
		Version:   FormatVersion,
		Timestamp: now.UTC(),
		Data: models.Dataset{
			Teacher:  state.Teacher,
			Students: nonNil(state.Students),
			Lessons:  nonNil(state.Lessons),
			Payments: nonNil(state.Payments),
			Groups:   nonNil(state.Groups),
		},
	}
}

// Import overwrites all collections with the snapshot data. Nothing is merged.
func Import(ctx context.Context, dst Restorer, snap *Snapshot) error {
	if snap == nil {
		return ErrInvalidBackup
	}
	data := snap.Data
	data.Students = nonNil(data.Students)
	data.Lessons = nonNil(data.Lessons)
	data.Payments = nonNil(data.Payments)
	data.Groups = nonNil(data.Groups)

	if err := dst.ReplaceAll(ctx, data); err != nil {
		return fmt.Errorf("failed to restore backup: %w", err)
	}
	return nil
}

// Encode writes snap as indented plaintext JSON.
func Encode(w io.Writer, snap Snapshot) error {
	out, err := jsonAPI.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode backup: %w", err)
	}
	out = append(out, '\n')
	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("failed to write backup: %w", err)
	}
	return nil
}

// Decode reads a snapshot. Plain JSON is parsed directly; anything that looks
// like a stored value is decrypted first when dec is non-nil.
func Decode(ctx context.Context, r io.Reader, dec Decrypter) (*Snapshot, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read backup: %w", err)
	}
	raw = bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf"))
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty file", ErrInvalidBackup)
	}

	if !strings.HasPrefix(text, "{") {
		if dec == nil || !codec.IsEncrypted(text) {
			return nil, fmt.Errorf("%w: not a JSON document", ErrInvalidBackup)
		}
		plain, err := dec.Decrypt(ctx, text)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorruptBackup, err)
		}
		text = plain
	}

	var wire wireSnapshot
	if err := jsonAPI.UnmarshalFromString(text, &wire); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if wire.Data == nil || wire.Data.Students == nil {
		return nil, fmt.Errorf("%w: missing data.students", ErrInvalidBackup)
	}
	if wire.Version > FormatVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidBackup, wire.Version)
	}

	snap := &Snapshot{
		Version: wire.Version,
		Data: models.Dataset{
			Teacher:  wire.Data.Teacher,
			Students: nonNil(*wire.Data.Students),
			Lessons:  nonNil(wire.Data.Lessons),
			Payments: nonNil(wire.Data.Payments),
			Groups:   nonNil(wire.Data.Groups),
		},
	}
	// The timestamp is informational; an unreadable one is not fatal.
	if ts, err := time.Parse(time.RFC3339Nano, wire.Timestamp); err == nil {
		snap.Timestamp = ts
	}
	return snap, nil
}

func nonNil[T any](list []T) []T {
	if list == nil {
		return []T{}
	}
	return list
}
