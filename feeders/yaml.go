package feeders

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// YamlFeeder is a feeder that reads YAML files
type YamlFeeder struct {
	Path string
}

// NewYamlFeeder creates a new YamlFeeder that reads from the specified YAML file
func NewYamlFeeder(filePath string) YamlFeeder {
	return YamlFeeder{Path: filePath}
}

// Feed decodes the YAML file into structure. Keys missing from the file
// leave the existing field values untouched.
func (y YamlFeeder) Feed(structure any) error {
	data, err := os.ReadFile(y.Path)
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrFileRead, y.Path, err)
	}

	if err := yaml.Unmarshal(data, structure); err != nil {
		return fmt.Errorf("%w %s: %w", ErrYamlDecode, y.Path, err)
	}
	return nil
}
