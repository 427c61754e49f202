package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"hrmq/internal/config"
	"hrmq/internal/fileserver"
	"hrmq/internal/jobs"
	"hrmq/internal/logging"
	"hrmq/internal/queue"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// withStore opens the queue database for the duration of fn.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return fmt.Errorf("open queue database: %w", err)
	}
	defer store.Close()
	return fn(store)
}

// jobQueue returns the lock-protected queue shared by every hrmq process
// using the same data directory.
func (c *commandContext) jobQueue(store *queue.Store) *queue.JobQueue {
	cfg := c.configValue()
	retry := time.Duration(cfg.Queue.LockRetryMS) * time.Millisecond
	return queue.NewJobQueue(store, queue.NewLock(cfg.QueueLockPath(), retry))
}

func (c *commandContext) newManager(store *queue.Store) (*jobs.Manager, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return jobs.NewManager(c.configValue(), store, c.jobQueue(store), logger), nil
}

func (c *commandContext) newIngestor(store *queue.Store) (*fileserver.Ingestor, error) {
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	return fileserver.New(c.configValue(), store, logger), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
