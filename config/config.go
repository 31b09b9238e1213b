// Package config loads the benchmark matrix from a YAML file.
//
// The file is given either with the --config flag or through the
// BLOCKPRESS_CONFIG environment variable. There is no automatic discovery; if
// neither is set, the built-in [Default] is used as-is.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/dargueta/blockpress"
	"github.com/dargueta/blockpress/bitpack"
	"github.com/dargueta/blockpress/coder"
	"github.com/dargueta/blockpress/transform"
	"github.com/dargueta/blockpress/utilities/compression"
	"gopkg.in/yaml.v3"
)

// EnvVar names the environment variable holding the config file path.
const EnvVar = "BLOCKPRESS_CONFIG"

// Config describes one benchmark run. Every combination of the listed
// transformers, coders and compressors is run over every input section.
type Config struct {
	// Workers is the number of sections processed in parallel.
	Workers int `yaml:"workers"`

	// Verify runs every pass backwards and compares it with the input.
	Verify bool `yaml:"verify"`

	// Profile collects the rank-frequency profile of each section.
	Profile bool `yaml:"profile"`

	// Convention is the packing convention of the input sections: "spanning"
	// (before 1.16) or "aligned". Dump files record their own convention,
	// which takes precedence.
	Convention string `yaml:"convention"`

	Transformers []string `yaml:"transformers"`
	Coders       []string `yaml:"coders"`
	Compressors  []string `yaml:"compressors"`

	// Input is the path of a section dump. If empty, sections are generated.
	Input string `yaml:"input"`

	Synthetic SyntheticConfig `yaml:"synthetic"`
}

// SyntheticConfig controls the section generator used when there's no input
// file.
type SyntheticConfig struct {
	Seed     uint32 `yaml:"seed"`
	Sections int    `yaml:"sections"`
}

// Default returns the configuration used when no file is given. Values in a
// config file override these.
func Default() *Config {
	return &Config{
		Workers:      4,
		Verify:       true,
		Profile:      false,
		Convention:   bitpack.Aligned.String(),
		Transformers: []string{"none", "mtf", "hilbert+mtf-lookbehind"},
		Coders:       []string{"arithmetic", "bytewise"},
		Compressors:  []string{"none", "zstd"},
		Synthetic: SyntheticConfig{
			Seed:     1,
			Sections: 256,
		},
	}
}

// Load reads the config file at `path`, or the one named by [EnvVar] if `path`
// is empty. If neither is set it returns [Default]. The result is validated.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv(EnvVar)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err = cfg.decode(bytes.NewReader(data)); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads a config from YAML text, on top of the defaults.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := cfg.decode(bytes.NewReader(data)); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) decode(r io.Reader) error {
	decoder := yaml.NewDecoder(r)
	// Misspelled keys would otherwise silently fall back to the defaults.
	decoder.KnownFields(true)

	err := decoder.Decode(c)
	if errors.Is(err, io.EOF) {
		// Empty file.
		return nil
	}
	return err
}

// Validate checks that every name in the matrix is known and the numbers are
// in range.
func (c *Config) Validate() error {
	if c.Workers < 1 {
		return blockpress.ErrArgumentOutOfRange.WithMessage(
			fmt.Sprintf("workers must be at least 1, got %d", c.Workers))
	}
	if _, err := bitpack.ParseConvention(c.Convention); err != nil {
		return err
	}

	if len(c.Transformers) == 0 || len(c.Coders) == 0 || len(c.Compressors) == 0 {
		return blockpress.ErrInvalidArgument.WithMessage(
			"transformers, coders and compressors must each list at least one name")
	}
	for _, name := range c.Transformers {
		if _, err := transform.Parse(name); err != nil {
			return err
		}
	}
	for _, name := range c.Coders {
		if _, err := coder.Parse(name); err != nil {
			return err
		}
	}
	for _, name := range c.Compressors {
		if _, err := compression.Parse(name); err != nil {
			return err
		}
	}

	if c.Input == "" && c.Synthetic.Sections < 1 {
		return blockpress.ErrArgumentOutOfRange.WithMessage(
			"synthetic.sections must be at least 1 when there's no input file")
	}
	return nil
}

// PackingConvention is the parsed form of the Convention field. Call it only
// on a validated config.
func (c *Config) PackingConvention() bitpack.Convention {
	conv, err := bitpack.ParseConvention(c.Convention)
	if err != nil {
		panic(err)
	}
	return conv
}
