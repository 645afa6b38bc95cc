package config

import (
	"fmt"
	"os"
	"strings"
)

// ValidateConfig checks if the global configurations have valid values and fills in defaults.
func ValidateConfig(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("YAML global config: configuration object is nil")
	}
	if err := ValidateLoggerConfig(&cfg.Logger); err != nil {
		return fmt.Errorf("YAML global config: logger directive is invalid: %w", err)
	}
	if err := ValidateCatalogConfig(&cfg.Catalog); err != nil {
		return fmt.Errorf("YAML global config: catalog directive is invalid: %w", err)
	}
	return nil
}

// ValidateLoggerConfig checks the logger level name.
func ValidateLoggerConfig(loggerConfig *Logger) error {
	if loggerConfig == nil {
		return fmt.Errorf("logger configuration is nil")
	}
	loggerConfig.Level = SetThen(loggerConfig.Level, defaultLoggerLevel)

	switch strings.ToUpper(loggerConfig.Level) {
	case "TRACE", "DEBUG", "INFO", "WARN", "ERROR":
		return nil
	default:
		return fmt.Errorf("unknown level %q", loggerConfig.Level)
	}
}

// ValidateCatalogConfig checks catalog settings, applies environment overrides and defaults.
func ValidateCatalogConfig(catalogConfig *Catalog) error {
	if catalogConfig == nil {
		return fmt.Errorf("catalog configuration is nil")
	}

	if envPath := os.Getenv(EnvCatalogPath); envPath != "" {
		catalogConfig.Path = envPath
	}
	if envAuthor := os.Getenv(EnvAuthor); envAuthor != "" {
		catalogConfig.Author = envAuthor
	}

	catalogConfig.Path = SetThen(catalogConfig.Path, DefaultCatalogPath)
	catalogConfig.SearchBound = SetThen(catalogConfig.SearchBound, DefaultSearchBound)
	catalogConfig.CacheSize = SetThen(catalogConfig.CacheSize, DefaultCacheSize)
	if len(catalogConfig.DeclarationKeywords) == 0 {
		catalogConfig.DeclarationKeywords = append([]string(nil), DefaultDeclarationKeywords...)
	}

	if err := validateRange(catalogConfig.ContextRadius(), "context_lines", 0, 20); err != nil {
		return err
	}
	if err := validateRange(catalogConfig.SearchBound, "search_bound", 1, 10000); err != nil {
		return err
	}
	if err := validateRange(catalogConfig.CacheSize, "cache_size", 1, 1024); err != nil {
		return err
	}
	for _, kw := range catalogConfig.DeclarationKeywords {
		if kw == "" || strings.ContainsAny(kw, " \t") {
			return fmt.Errorf("declaration_keywords: invalid keyword %q", kw)
		}
	}
	return nil
}

// validateRange checks that an integer setting lies within [min, max].
func validateRange(v int, name string, min, max int) error {
	if v < min || v > max {
		return fmt.Errorf("%s must be between %d and %d: %d", name, min, max, v)
	}
	return nil
}
