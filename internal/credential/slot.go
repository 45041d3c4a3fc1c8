package credential

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Slot abstracts the single place the validated credentials are kept.
type Slot interface {
	// Read returns the stored bytes, or an error wrapping os.ErrNotExist
	// when nothing is stored.
	Read() ([]byte, error)

	// Write replaces the stored bytes.
	Write(data []byte) error

	// Remove empties the slot. Removing an empty slot is not an error.
	Remove() error
}

// FileSlot implements Slot with one file readable only by its owner.
type FileSlot struct {
	Path string
}

var _ Slot = (*FileSlot)(nil)

func (s *FileSlot) Read() ([]byte, error) {
	return os.ReadFile(s.Path)
}

func (s *FileSlot) Write(data []byte) error {
	if err := os.MkdirAll(filepath.Dir(s.Path), 0700); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	// Write to a sibling file first so a crash never leaves half a token behind.
	tmp, err := os.CreateTemp(filepath.Dir(s.Path), ".credentials-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(0600); err != nil {
		tmp.Close()
		return fmt.Errorf("restricting cache permissions: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing cache: %w", err)
	}
	return nil
}

func (s *FileSlot) Remove() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing cache: %w", err)
	}
	return nil
}
