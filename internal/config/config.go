package config

import (
	"fmt"
	"os"

	yaml "gopkg.in/yaml.v2"
)

const (
	DefaultCatalogPath  = "scanio-ignore.md"
	DefaultContextLines = 2
	DefaultSearchBound  = 100
	DefaultCacheSize    = 3
	DefaultConfigPath   = "config.yml"
	EnvLogLevel         = "SCANIO_IGNORE_LOG_LEVEL"
	EnvAuthor           = "SCANIO_IGNORE_AUTHOR"
	EnvCatalogPath      = "SCANIO_IGNORE_CATALOG"
	defaultLoggerLevel  = "info"
)

// DefaultDeclarationKeywords are the first tokens that mark an enclosing declaration header.
var DefaultDeclarationKeywords = []string{"def", "class", "func", "function", "fn", "module", "interface"}

type Config struct {
	Logger  Logger  `yaml:"logger"`
	Catalog Catalog `yaml:"catalog"`
}

type Logger struct {
	Level           string `yaml:"level"`
	DisableTime     *bool  `yaml:"disable_time"`
	JSONFormat      *bool  `yaml:"json_format"`
	IncludeLocation *bool  `yaml:"include_location"`
}

type Catalog struct {
	Path                string   `yaml:"path"`
	Root                string   `yaml:"root"`
	ContextLines        *int     `yaml:"context_lines"`
	SearchBound         int      `yaml:"search_bound"`
	CacheSize           int      `yaml:"cache_size"`
	DeclarationKeywords []string `yaml:"declaration_keywords"`
	Author              string   `yaml:"author"`
}

func ValidateConfigPath(path string) error {
	s, err := os.Stat(path)
	if err != nil {
		return err
	}
	if s.IsDir() {
		return fmt.Errorf("'%s' is a directory, not a file", path)
	}
	return nil
}

func LoadYAML(configPath string, data interface{}) error {
	if err := ValidateConfigPath(configPath); err != nil {
		return err
	}

	file, err := os.Open(configPath)
	if err != nil {
		return err
	}
	defer file.Close()

	d := yaml.NewDecoder(file)
	if err := d.Decode(data); err != nil {
		return err
	}

	return nil
}

// LoadConfig reads the YAML config at configPath.
// A missing file at the default location yields an empty config; a missing explicit file is an error.
func LoadConfig(configPath string, explicit bool) (*Config, error) {
	config := &Config{}

	if _, err := os.Stat(configPath); os.IsNotExist(err) && !explicit {
		return config, nil
	}

	if err := LoadYAML(configPath, config); err != nil {
		return nil, fmt.Errorf("failed to load config %q: %w", configPath, err)
	}

	return config, nil
}

// ContextRadius returns the configured context radius, falling back to the default when unset.
func (c *Catalog) ContextRadius() int {
	if c.ContextLines == nil {
		return DefaultContextLines
	}
	return *c.ContextLines
}
