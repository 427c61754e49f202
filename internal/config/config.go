package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains the managed directory layout.
type Paths struct {
	// ImageFolder is the root that holds one directory per user.
	ImageFolder string `toml:"image_folder"`
	// SourceSubdir is the per-user folder raw images are uploaded into.
	SourceSubdir string `toml:"source_subdir"`
	// DestinationSubdir is the per-user folder restored images are written to.
	DestinationSubdir string `toml:"destination_subdir"`
	// DataDir holds the queue database, the queue lock file, and logs.
	DataDir string `toml:"data_dir"`
	// UploadDir is where the web tier drops uploads before ingestion.
	UploadDir string `toml:"upload_dir"`
}

// Ingest contains configuration for moving uploads into managed storage.
type Ingest struct {
	ImageExtensions       []string          `toml:"image_extensions"`
	Archives              map[string]string `toml:"archives"`
	DecompressTimeout     int               `toml:"decompress_timeout"`
	ExtensionCacheSeconds int               `toml:"extension_cache_seconds"`
}

// Queue contains configuration for the job queue.
type Queue struct {
	PriorityPolicy string `toml:"priority_policy"`
	Persistence    string `toml:"persistence"`
	LockRetryMS    int    `toml:"lock_retry_ms"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for hrmq.
//
// Configuration sections by subsystem:
//   - Paths: managed image tree and data directory
//   - Ingest: image formats, archive command table, decompression timeout
//   - Queue: priority and persistence policies, lock polling
//   - Logging: log format and level
type Config struct {
	Paths   Paths   `toml:"paths"`
	Ingest  Ingest  `toml:"ingest"`
	Queue   Queue   `toml:"queue"`
	Logging Logging `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/hrmq/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		info, err := os.Stat(expanded)
		if err != nil {
			if os.IsNotExist(err) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("inspect config %q: %w", expanded, err)
		}
		if info.IsDir() {
			return "", false, fmt.Errorf("config path %q is a directory", expanded)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("hrmq.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the queue and ingestor write into.
// The image folder is created on a best-effort basis so queue inspection works
// while the shared image storage is temporarily unmounted.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.UploadDir} {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	if strings.TrimSpace(c.Paths.ImageFolder) != "" {
		_ = os.MkdirAll(c.Paths.ImageFolder, 0o755)
	}
	return nil
}

// QueueDBPath returns the location of the SQLite queue database.
func (c *Config) QueueDBPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.db")
}

// QueueLockPath returns the location of the advisory lock guarding queue mutations.
func (c *Config) QueueLockPath() string {
	return filepath.Join(c.Paths.DataDir, "queue.lock")
}

// LogPath returns the location of the hrmq log file.
func (c *Config) LogPath() string {
	return filepath.Join(c.Paths.DataDir, "hrmq.log")
}

// UserSourceFolder returns the managed source-image root of a user, slash terminated.
func (c *Config) UserSourceFolder(user string) string {
	return userFolder(c.Paths.ImageFolder, user, c.Paths.SourceSubdir)
}

// UserDestinationFolder returns the managed result root of a user, slash terminated.
func (c *Config) UserDestinationFolder(user string) string {
	return userFolder(c.Paths.ImageFolder, user, c.Paths.DestinationSubdir)
}

func userFolder(root, user, sub string) string {
	return strings.TrimRight(root, "/") + "/" + user + "/" + sub + "/"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
