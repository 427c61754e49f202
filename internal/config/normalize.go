package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeIngest()
	c.normalizeQueue()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	if value, ok := os.LookupEnv("HRMQ_IMAGE_FOLDER"); ok && strings.TrimSpace(value) != "" {
		c.Paths.ImageFolder = value
	}
	var err error
	if c.Paths.ImageFolder, err = expandPath(c.Paths.ImageFolder); err != nil {
		return fmt.Errorf("paths.image_folder: %w", err)
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.UploadDir) == "" {
		c.Paths.UploadDir = defaultUploadDir
	}
	if c.Paths.UploadDir, err = expandPath(c.Paths.UploadDir); err != nil {
		return fmt.Errorf("paths.upload_dir: %w", err)
	}
	c.Paths.SourceSubdir = strings.Trim(strings.TrimSpace(c.Paths.SourceSubdir), "/")
	if c.Paths.SourceSubdir == "" {
		c.Paths.SourceSubdir = defaultSourceSubdir
	}
	c.Paths.DestinationSubdir = strings.Trim(strings.TrimSpace(c.Paths.DestinationSubdir), "/")
	if c.Paths.DestinationSubdir == "" {
		c.Paths.DestinationSubdir = defaultDestinationSubdir
	}
	return nil
}

func (c *Config) normalizeIngest() {
	seen := make(map[string]struct{}, len(c.Ingest.ImageExtensions))
	exts := make([]string, 0, len(c.Ingest.ImageExtensions))
	for _, ext := range c.Ingest.ImageExtensions {
		ext = NormalizeExtension(ext)
		if ext == "" {
			continue
		}
		if _, ok := seen[ext]; ok {
			continue
		}
		seen[ext] = struct{}{}
		exts = append(exts, ext)
	}
	c.Ingest.ImageExtensions = exts

	archives := make(map[string]string, len(c.Ingest.Archives))
	for ext, command := range c.Ingest.Archives {
		ext = NormalizeExtension(ext)
		command = strings.TrimSpace(command)
		if ext == "" || command == "" {
			continue
		}
		archives[ext] = command
	}
	c.Ingest.Archives = archives

	if c.Ingest.DecompressTimeout < 0 {
		c.Ingest.DecompressTimeout = 0
	}
	if c.Ingest.ExtensionCacheSeconds < 0 {
		c.Ingest.ExtensionCacheSeconds = 0
	}
}

func (c *Config) normalizeQueue() {
	c.Queue.PriorityPolicy = strings.ToLower(strings.TrimSpace(c.Queue.PriorityPolicy))
	if c.Queue.PriorityPolicy == "" {
		c.Queue.PriorityPolicy = defaultPriorityPolicy
	}
	c.Queue.Persistence = strings.ToLower(strings.TrimSpace(c.Queue.Persistence))
	if c.Queue.Persistence == "" {
		c.Queue.Persistence = defaultPersistence
	}
	if c.Queue.LockRetryMS <= 0 {
		c.Queue.LockRetryMS = defaultLockRetryMS
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

// NormalizeExtension lower-cases an extension and strips any leading dots.
func NormalizeExtension(ext string) string {
	return strings.TrimLeft(strings.ToLower(strings.TrimSpace(ext)), ".")
}
