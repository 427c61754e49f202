package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"hrmq/internal/config"
	"hrmq/internal/testsupport"
)

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T, opts ...testsupport.ConfigOption) *cliTestEnv {
	t.Helper()

	cfg := testsupport.NewConfig(t, opts...)
	base := testsupport.BaseDir(cfg)
	t.Setenv("HOME", filepath.Join(base, "home"))

	configPath := filepath.Join(base, "config.toml")
	writeTestConfig(t, configPath, cfg)
	return &cliTestEnv{cfg: cfg, configPath: configPath, baseDir: base}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func writeTestConfig(t *testing.T, path string, cfg *config.Config) {
	t.Helper()
	var b strings.Builder
	fmt.Fprintf(&b, "[paths]\nimage_folder = %q\ndata_dir = %q\nupload_dir = %q\n\n",
		cfg.Paths.ImageFolder, cfg.Paths.DataDir, cfg.Paths.UploadDir)
	fmt.Fprintf(&b, "[ingest]\nextension_cache_seconds = 0\n\n")
	if len(cfg.Ingest.Archives) > 0 {
		b.WriteString("[ingest.archives]\n")
		for ext, command := range cfg.Ingest.Archives {
			fmt.Fprintf(&b, "%q = %q\n", ext, command)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "[queue]\npriority_policy = %q\npersistence = %q\nlock_retry_ms = 5\n\n",
		cfg.Queue.PriorityPolicy, cfg.Queue.Persistence)
	b.WriteString("[logging]\nformat = \"json\"\nlevel = \"warn\"\n")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func writeSettings(t *testing.T, dir, owner, task string) string {
	t.Helper()
	path := filepath.Join(dir, task+".toml")
	testsupport.WriteText(t, path, fmt.Sprintf(`[parameter_setting]
name = "widefield"
owner = %q

[parameter_setting.parameters]
ImageFileFormat = "tif"
NumberOfChannels = "2"

[task_setting]
name = %q

[task_setting.parameters]
OutputFileFormat = "TIFF 16-bit"
`, owner, task))
	return path
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q\n%s", needle, haystack)
	}
}

// requireRow fails unless one output line holds every cell, in order.
func requireRow(t *testing.T, out string, cells ...string) {
	t.Helper()
	for _, line := range strings.Split(out, "\n") {
		rest := line
		matched := true
		for _, cell := range cells {
			idx := strings.Index(rest, cell)
			if idx < 0 {
				matched = false
				break
			}
			rest = rest[idx+len(cell):]
		}
		if matched {
			return
		}
	}
	t.Fatalf("expected a row with %q\n%s", cells, out)
}
