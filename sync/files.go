package sync

import (
	"bytes"
	_ "embed"
	"io"
	"os"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// MappingFile is a YAML configuration source.
type MappingFile struct {
	Name   string
	Reader io.Reader
	Length int
}

// DefaultsMappingFile returns the embedded defaults for every environment variable.
func DefaultsMappingFile() MappingFile {
	return MappingFile{
		Name:   "defaults.yaml",
		Reader: bytes.NewReader(defaultsYAML),
		Length: len(defaultsYAML),
	}
}

// MustFindMappingFile reads a YAML file that overrides the embedded defaults.
func MustFindMappingFile(name string) (MappingFile, error) {
	var result MappingFile
	b, err := os.ReadFile(name)
	if err == nil {
		result.Name = name
		result.Reader = bytes.NewReader(b)
		result.Length = len(b)
	}
	return result, err
}
