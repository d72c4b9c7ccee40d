package pgstacdump

import (
	"fmt"
	"path/filepath"
)

// DefaultPageSize is the search page size used to read items.
const DefaultPageSize = 500

// Config holds all configuration options for dump operations
type Config struct {
	// DSN of the pgstac database. Empty uses the PG* environment variables.
	DSN string

	// Output file path
	Output string
	// Base directory for dumps (prefixes output path)
	Dir string

	// Collections to dump. If empty, every collection is dumped.
	Collections []string

	// PageSize is the number of items read per search call.
	PageSize int

	// Format is the framing of the dump file.
	Format Format

	// Enable verbose logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{PageSize: DefaultPageSize, Format: FormatNDJSON}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if c.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, got %d", c.PageSize)
	}
	return c.Format.Validate()
}

// GetOutputPath returns the full output path, applying Dir prefix if set
func (c *Config) GetOutputPath() string {
	if c.Dir != "" && c.Output != "" {
		return filepath.Join(c.Dir, c.Output)
	}
	return c.Output
}
