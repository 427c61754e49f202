package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePaths(); err != nil {
		return err
	}
	if err := c.validateIngest(); err != nil {
		return err
	}
	if err := c.validateQueue(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validatePaths() error {
	if strings.TrimSpace(c.Paths.ImageFolder) == "" {
		return errors.New("paths.image_folder must be set")
	}
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		return errors.New("paths.data_dir must be set")
	}
	if c.Paths.SourceSubdir == c.Paths.DestinationSubdir {
		return fmt.Errorf("paths.source_subdir and paths.destination_subdir must differ (both %q)", c.Paths.SourceSubdir)
	}
	return nil
}

func (c *Config) validateIngest() error {
	if len(c.Ingest.ImageExtensions) == 0 {
		return errors.New("ingest.image_extensions must list at least one format")
	}
	for ext, command := range c.Ingest.Archives {
		if !strings.Contains(command, DestPlaceholder) {
			return fmt.Errorf("ingest.archives.%s: command %q lacks the %s placeholder", ext, command, DestPlaceholder)
		}
	}
	return nil
}

func (c *Config) validateQueue() error {
	switch c.Queue.PriorityPolicy {
	case PriorityFairShare, PriorityFIFO:
	default:
		return fmt.Errorf("queue.priority_policy: unsupported value %q (want %q or %q)", c.Queue.PriorityPolicy, PriorityFairShare, PriorityFIFO)
	}
	switch c.Queue.Persistence {
	case PersistenceBestEffort, PersistenceTransactional:
	default:
		return fmt.Errorf("queue.persistence: unsupported value %q (want %q or %q)", c.Queue.Persistence, PersistenceBestEffort, PersistenceTransactional)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}
