package sim

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/statengine/internal/game/character"
	"github.com/cory-johannsen/statengine/internal/game/stat"
)

// SaveFile is the on-disk form of a character: its header plus one
// snapshot per stat.
type SaveFile struct {
	Character string          `yaml:"character"`
	Class     string          `yaml:"class,omitempty"`
	Level     int             `yaml:"level"`
	Stats     []stat.Snapshot `yaml:"stats"`
}

// NewSaveFile captures c.
func NewSaveFile(c *character.Character) SaveFile {
	return SaveFile{
		Character: c.Name,
		Class:     c.ClassID,
		Level:     c.Level(),
		Stats:     c.Snapshot(),
	}
}

// Apply restores the saved level and stats onto c.
//
// Postcondition: Returns the number of stat entries applied.
func (f SaveFile) Apply(c *character.Character) int {
	c.Stats.SetLevel(f.Level)
	return c.Restore(f.Stats)
}

// WriteSaveFile writes f to path as YAML.
func WriteSaveFile(path string, f SaveFile) error {
	data, err := yaml.Marshal(f)
	if err != nil {
		return fmt.Errorf("encoding save file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing save file: %w", err)
	}
	return nil
}

// ReadSaveFile reads a save written by WriteSaveFile, rejecting unknown
// fields.
func ReadSaveFile(path string) (SaveFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SaveFile{}, fmt.Errorf("reading save file: %w", err)
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f SaveFile
	if err := dec.Decode(&f); err != nil {
		if errors.Is(err, io.EOF) {
			return SaveFile{}, fmt.Errorf("%s: empty save file", path)
		}
		return SaveFile{}, fmt.Errorf("%s: decoding save file: %w", path, err)
	}
	if f.Character == "" {
		return SaveFile{}, fmt.Errorf("%s: save file has no character name", path)
	}
	return f, nil
}
