package feeders

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// TomlFeeder is a feeder that reads TOML files
type TomlFeeder struct {
	Path string
}

// NewTomlFeeder creates a new TomlFeeder that reads from the specified TOML file
func NewTomlFeeder(filePath string) TomlFeeder {
	return TomlFeeder{Path: filePath}
}

// Feed decodes the TOML file into structure
func (t TomlFeeder) Feed(structure any) error {
	data, err := os.ReadFile(t.Path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFileRead, t.Path, err)
	}

	if _, err := toml.Decode(string(data), structure); err != nil {
		return fmt.Errorf("%w %s: %w", ErrTomlDecode, t.Path, err)
	}
	return nil
}

// Feeder is implemented by every feeder in this package.
type Feeder interface {
	Feed(structure any) error
}

// ForFile picks a file feeder by extension: .yaml/.yml or .toml.
func ForFile(path string) (Feeder, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return NewYamlFeeder(path), nil
	case ".toml":
		return NewTomlFeeder(path), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
}
