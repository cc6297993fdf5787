// Package yaml loads run configuration from YAML files.
package yaml

import (
	"bytes"
	"errors"
	"io"
	"os"

	"github.com/fwojciec/listscrape"
	"gopkg.in/yaml.v3"
)

// LoadConfig reads the YAML file at path over base. Keys absent from the
// file keep their value from base. Durations are written as Go duration
// strings such as "1500ms". Unknown keys are rejected.
func LoadConfig(path string, base listscrape.Config) (listscrape.Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // User-provided config path is intentional
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return base, listscrape.Errorf(listscrape.ENOTFOUND, "config file %s not found", path)
		}
		return base, err
	}
	return DecodeConfig(data, base)
}

// DecodeConfig decodes YAML data over base.
func DecodeConfig(data []byte, base listscrape.Config) (listscrape.Config, error) {
	cfg := base
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return base, listscrape.Errorf(listscrape.EINVALID, "config: %v", err)
	}
	return cfg, nil
}

// EncodeConfig renders cfg as YAML.
func EncodeConfig(cfg listscrape.Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
