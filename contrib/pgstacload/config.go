package pgstacload

import "fmt"

// DefaultBatchSize is the number of items sent per bulk upsert.
const DefaultBatchSize = 500

// Config holds all configuration options for load operations
type Config struct {
	// DSN of the pgstac database. Empty uses the PG* environment variables.
	DSN string

	// Input is the dump file to load.
	Input string

	// BatchSize is the number of items per bulk upsert.
	BatchSize int

	// Atomic loads the whole dump in one transaction.
	Atomic bool

	// SkipVerify loads without checking the dump against its manifest.
	SkipVerify bool

	// Enable verbose logging
	Verbose bool
}

// NewConfig creates a new Config with default values
func NewConfig() *Config {
	return &Config{BatchSize: DefaultBatchSize}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Input == "" {
		return fmt.Errorf("input path is required")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	return nil
}
