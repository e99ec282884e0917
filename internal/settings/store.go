package settings

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// ErrNoRecord means nothing has been saved yet.
var ErrNoRecord = errors.New("settings: no saved record")

// Store is the persistence collaborator.
type Store interface {
	Load() (Configuration, error)
	Save(Configuration) error
}

// RecordSize is the encoded length of a Configuration.
var RecordSize = binary.Size(Configuration{})

// FileStore keeps the record as a fixed little-endian layout in one file.
type FileStore struct {
	Path string
}

func (s FileStore) Load() (Configuration, error) {
	var c Configuration
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, ErrNoRecord
	}
	if err != nil {
		return c, err
	}
	if len(b) != RecordSize {
		return c, fmt.Errorf("settings record %s: %d bytes, want %d", s.Path, len(b), RecordSize)
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &c); err != nil {
		return c, fmt.Errorf("decode settings: %w", err)
	}
	return c, nil
}

// Save replaces the record atomically.
func (s FileStore) Save(c Configuration) error {
	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, c); err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".settings-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.Path)
}

// MemStore keeps the record in memory and counts saves.
type MemStore struct {
	mu     sync.Mutex
	rec    *Configuration
	Saves  int
	SaveFn func(Configuration) error // optional failure injection
}

func (m *MemStore) Load() (Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return Configuration{}, ErrNoRecord
	}
	return *m.rec, nil
}

func (m *MemStore) Save(c Configuration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveFn != nil {
		if err := m.SaveFn(c); err != nil {
			return err
		}
	}
	m.Saves++
	m.rec = &c
	return nil
}

// LoadPersisted reads the saved record. A missing record, an unreadable one,
// or one with a different schema version all yield Defaults; the boolean
// reports that the defaults were substituted.
func LoadPersisted(s Store, log zerolog.Logger) (Configuration, bool) {
	c, err := s.Load()
	switch {
	case errors.Is(err, ErrNoRecord):
		log.Info().Msg("no saved settings; using defaults")
		return Defaults(), true
	case err != nil:
		log.Warn().Err(err).Msg("saved settings unreadable; using defaults")
		return Defaults(), true
	case c.Version != SchemaVersion:
		log.Info().Int32("version", c.Version).Int("want", SchemaVersion).Msg("saved settings from another schema; using defaults")
		return Defaults(), true
	}
	return c, false
}
