package fileserver_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"hrmq/internal/config"
	"hrmq/internal/fileserver"
	"hrmq/internal/logging"
	"hrmq/internal/testsupport"
)

type staticFormats []string

func (s staticFormats) AllFileExtensions(context.Context) ([]string, error) {
	return s, nil
}

type failingFormats struct{}

func (failingFormats) AllFileExtensions(context.Context) ([]string, error) {
	return nil, errors.New("database is locked")
}

type countingFormats struct {
	mu    sync.Mutex
	calls int
}

func (c *countingFormats) AllFileExtensions(context.Context) ([]string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	return []string{"tif"}, nil
}

// extractRunner writes one image into the destination folder, passed to the
// shell as $1 (second to last argument).
type extractRunner struct {
	calls [][]string
	err   error
}

func (r *extractRunner) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	r.calls = append(r.calls, append([]string{binary}, args...))
	if r.err != nil {
		return []byte("archive is corrupt"), r.err
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("unexpected arguments %v", args)
	}
	dest := args[len(args)-2]
	if err := os.WriteFile(filepath.Join(dest, "plane.tif"), []byte("x"), 0o644); err != nil {
		return nil, err
	}
	return nil, nil
}

func newIngestor(t *testing.T, cfg *config.Config, opts ...fileserver.Option) *fileserver.Ingestor {
	t.Helper()
	return fileserver.New(cfg, staticFormats{"tif", "ome.tif", "lif"}, logging.NewNop(), opts...)
}

func TestMoveUploadedFileMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")

	_, err := in.MoveUploadedFile(context.Background(), filepath.Join(cfg.Paths.UploadDir, "missing.tif"), destDir)
	if !errors.Is(err, fileserver.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, statErr := os.Stat(destDir); !os.IsNotExist(statErr) {
		t.Fatalf("expected destination untouched, stat err=%v", statErr)
	}
}

func TestMoveUploadedFileUnsupportedFormat(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	src := filepath.Join(cfg.Paths.UploadDir, "notes.docx")
	testsupport.WriteText(t, src, "not an image")
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")

	_, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if !errors.Is(err, fileserver.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	data, readErr := os.ReadFile(src)
	if readErr != nil || string(data) != "not an image" {
		t.Fatalf("expected source untouched, got %q err=%v", data, readErr)
	}
	if _, statErr := os.Stat(destDir); !os.IsNotExist(statErr) {
		t.Fatalf("expected destination untouched, stat err=%v", statErr)
	}
}

func TestMoveUploadedFileSanitizesAndMoves(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	src := filepath.Join(cfg.Paths.UploadDir, "my scan.ome.tif")
	testsupport.WriteFile(t, src, 128)
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")

	got, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if err != nil {
		t.Fatalf("MoveUploadedFile: %v", err)
	}
	if got != filepath.Join(destDir, "my_scan.ome.tif") {
		t.Fatalf("unexpected destination %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source moved away, stat err=%v", err)
	}
	info, err := os.Stat(got)
	if err != nil || info.Size() != 128 {
		t.Fatalf("expected 128-byte destination, info=%v err=%v", info, err)
	}
}

func TestMoveUploadedFileAvoidsCollision(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")
	testsupport.WriteText(t, filepath.Join(destDir, "foo.tif"), "existing")
	src := filepath.Join(cfg.Paths.UploadDir, "foo.tif")
	testsupport.WriteText(t, src, "upload")

	got, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if err != nil {
		t.Fatalf("MoveUploadedFile: %v", err)
	}
	if filepath.Base(got) != "foo_1.tif" {
		t.Fatalf("expected foo_1.tif, got %q", got)
	}
	existing, _ := os.ReadFile(filepath.Join(destDir, "foo.tif"))
	if string(existing) != "existing" {
		t.Fatalf("existing file overwritten: %q", existing)
	}
}

func TestMoveUploadedFileTooManyCollisions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")
	fillCollisions(t, destDir, "foo", "tif")
	src := filepath.Join(cfg.Paths.UploadDir, "foo.tif")
	testsupport.WriteText(t, src, "upload")

	_, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if !errors.Is(err, fileserver.ErrTooManyCollisions) {
		t.Fatalf("expected ErrTooManyCollisions, got %v", err)
	}
	if _, statErr := os.Stat(src); statErr != nil {
		t.Fatalf("expected source kept, stat err=%v", statErr)
	}
}

func TestMoveUploadedFileConcurrentSameName(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")

	const uploads = 8
	sources := make([]string, uploads)
	for i := range sources {
		sources[i] = filepath.Join(cfg.Paths.UploadDir, fmt.Sprintf("session-%d", i), "cells.tif")
		testsupport.WriteText(t, sources[i], fmt.Sprintf("upload-%d", i))
	}

	results := make([]string, uploads)
	errs := make([]error, uploads)
	var wg sync.WaitGroup
	for i := range sources {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = in.MoveUploadedFile(context.Background(), sources[i], destDir)
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, uploads)
	for i, err := range errs {
		if err != nil {
			t.Fatalf("upload %d: %v", i, err)
		}
		if _, dup := seen[results[i]]; dup {
			t.Fatalf("two uploads claimed %s", results[i])
		}
		seen[results[i]] = struct{}{}
	}
	entries, err := os.ReadDir(destDir)
	if err != nil {
		t.Fatalf("read dest: %v", err)
	}
	if len(entries) != uploads {
		t.Fatalf("expected %d files in destination, got %d", uploads, len(entries))
	}
}

func TestMoveUploadedFileExpandsArchive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &extractRunner{}
	in := newIngestor(t, cfg, fileserver.WithRunner(runner))
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")
	if err := os.MkdirAll(filepath.Join(destDir, "batch"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	src := filepath.Join(cfg.Paths.UploadDir, "batch.zip")
	testsupport.WriteText(t, src, "PK")

	got, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if err != nil {
		t.Fatalf("MoveUploadedFile: %v", err)
	}
	if got != filepath.Join(destDir, "batch_1") {
		t.Fatalf("expected batch_1 folder, got %q", got)
	}
	if _, err := os.Stat(filepath.Join(got, "plane.tif")); err != nil {
		t.Fatalf("expected extracted image: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected archive removed after expansion, stat err=%v", err)
	}
	if len(runner.calls) != 1 {
		t.Fatalf("expected one command, got %d", len(runner.calls))
	}
	want := []string{"sh", "-c", `unzip -qq -o -d "$1" "$2"`, "hrmq-archive", got, src}
	if !slices.Equal(runner.calls[0], want) {
		t.Fatalf("unexpected command %v, want %v", runner.calls[0], want)
	}
}

func TestMoveUploadedFileDecompressionFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	runner := &extractRunner{err: errors.New("exit status 9")}
	in := newIngestor(t, cfg, fileserver.WithRunner(runner))
	destDir := filepath.Join(cfg.Paths.ImageFolder, "alice", "src")
	src := filepath.Join(cfg.Paths.UploadDir, "batch.tar.gz")
	testsupport.WriteText(t, src, "gz")

	_, err := in.MoveUploadedFile(context.Background(), src, destDir)
	if !errors.Is(err, fileserver.ErrDecompressionFailed) {
		t.Fatalf("expected ErrDecompressionFailed, got %v", err)
	}
	if _, statErr := os.Stat(filepath.Join(destDir, "batch")); !os.IsNotExist(statErr) {
		t.Fatalf("expected claimed folder removed, stat err=%v", statErr)
	}
	if _, statErr := os.Stat(src); statErr != nil {
		t.Fatalf("expected archive kept, stat err=%v", statErr)
	}
}

func TestDecompressArchiveRunsConfiguredCommand(t *testing.T) {
	script := `while [ $# -gt 0 ]; do
  if [ "$1" = "-d" ]; then shift; echo ok > "$1/extracted.tif"; fi
  shift
done
exit 0`
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("unzip", script))
	in := newIngestor(t, cfg)
	src := filepath.Join(cfg.Paths.UploadDir, "with space.zip")
	testsupport.WriteText(t, src, "PK")
	dest := filepath.Join(cfg.Paths.ImageFolder, "alice", "src", "with space")

	if err := in.DecompressArchive(context.Background(), src, dest); err != nil {
		t.Fatalf("DecompressArchive: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dest, "extracted.tif")); err != nil {
		t.Fatalf("expected extracted file: %v", err)
	}
}

// fakeExtractScript writes plane.tif into the folder given with -C (or the
// working directory) and fails unless its last argument is an existing file.
const fakeExtractScript = `dir=.
last=
while [ $# -gt 0 ]; do
  case "$1" in
    -C) shift; dir="$1" ;;
  esac
  last="$1"
  shift
done
[ -f "$last" ] || exit 4
[ -d "$dir" ] || exit 5
echo ok > "$dir/plane.tif"`

func TestDecompressArchiveTemplateQuoting(t *testing.T) {
	cases := []struct {
		name     string
		template string
	}{
		{name: "bare placeholder", template: "fakeextract -C %DEST% -xf"},
		{name: "double quoted placeholder", template: `fakeextract -C "%DEST%" -xf`},
		{name: "single quoted placeholder", template: `fakeextract -C '%DEST%' -xf`},
		{name: "shell syntax", template: "cd %DEST% && fakeextract -xf"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testsupport.NewConfig(t,
				testsupport.WithStubScript("fakeextract", fakeExtractScript),
				testsupport.WithArchive("tar", tc.template),
			)
			in := newIngestor(t, cfg)
			src := filepath.Join(cfg.Paths.UploadDir, "my stack.tar")
			testsupport.WriteText(t, src, "tar")
			dest := filepath.Join(cfg.Paths.ImageFolder, "alice", "src", "out dir")

			if err := in.DecompressArchive(context.Background(), src, dest); err != nil {
				t.Fatalf("DecompressArchive(%q): %v", tc.template, err)
			}
			if _, err := os.Stat(filepath.Join(dest, "plane.tif")); err != nil {
				t.Fatalf("expected plane.tif inside %q: %v", dest, err)
			}
		})
	}
}

func TestDecompressArchiveNonZeroExit(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubScript("unzip", "echo broken >&2\nexit 3"))
	in := newIngestor(t, cfg)
	src := filepath.Join(cfg.Paths.UploadDir, "bad.zip")
	testsupport.WriteText(t, src, "PK")

	err := in.DecompressArchive(context.Background(), src, filepath.Join(t.TempDir(), "out"))
	if !errors.Is(err, fileserver.ErrDecompressionFailed) {
		t.Fatalf("expected ErrDecompressionFailed, got %v", err)
	}
}

func TestDecompressArchiveUnknownExtension(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg, fileserver.WithRunner(&extractRunner{}))

	err := in.DecompressArchive(context.Background(), "/tmp/data.rar", t.TempDir())
	if !errors.Is(err, fileserver.ErrDecompressionFailed) {
		t.Fatalf("expected ErrDecompressionFailed, got %v", err)
	}
}

func TestIsArchiveFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	for name, want := range map[string]bool{
		"batch.zip":    true,
		"BATCH.ZIP":    true,
		"batch.tar.gz": true,
		"scan.tif":     false,
		"batch.rar":    false,
	} {
		if got := in.IsArchiveFile(name); got != want {
			t.Fatalf("IsArchiveFile(%q) = %v, want %v", name, got, want)
		}
	}
}

func TestIsValidImage(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := newIngestor(t, cfg)
	ctx := context.Background()

	if !in.IsValidImage(ctx, "scan.ome.tif", false) {
		t.Fatal("expected ome.tif to be valid")
	}
	if !in.IsValidImage(ctx, "SCAN.TIF", false) {
		t.Fatal("expected extension match to ignore case")
	}
	if in.IsValidImage(ctx, "scan.ids", false) {
		t.Fatal("expected ids rejected without extras")
	}
	if !in.IsValidImage(ctx, "scan.ids", true) {
		t.Fatal("expected ids accepted with extras")
	}
	if !in.IsValidImage(ctx, "scan.idx.gz", true) {
		t.Fatal("expected idx.gz accepted with extras")
	}
	if in.IsValidImage(ctx, "scan", true) {
		t.Fatal("expected name without extension rejected")
	}
}

func TestIsValidImageStoreFailure(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	in := fileserver.New(cfg, failingFormats{}, logging.NewNop())
	if in.IsValidImage(context.Background(), "scan.tif", false) {
		t.Fatal("expected rejection when formats cannot be listed")
	}
	if !in.IsValidImage(context.Background(), "scan.ids", true) {
		t.Fatal("expected extras to stay valid when formats cannot be listed")
	}
}

func TestImageExtensionsCached(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ingest.ExtensionCacheSeconds = 60
	source := &countingFormats{}
	in := fileserver.New(cfg, source, logging.NewNop())
	ctx := context.Background()

	for range 3 {
		in.IsValidImage(ctx, "scan.tif", false)
	}
	if source.calls != 1 {
		t.Fatalf("expected one store lookup, got %d", source.calls)
	}
	in.InvalidateFormats()
	in.IsValidImage(ctx, "scan.tif", false)
	if source.calls != 2 {
		t.Fatalf("expected lookup after invalidation, got %d", source.calls)
	}
}

func TestAllValidExtensions(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Ingest.Archives = map[string]string{"zip": "unzip -d %DEST%", "tgz": "tar -C %DEST% -xzf"}
	in := fileserver.New(cfg, staticFormats{"tif"}, logging.NewNop())

	got, err := in.AllValidExtensions(context.Background(), true)
	if err != nil {
		t.Fatalf("AllValidExtensions: %v", err)
	}
	want := []string{".tif", ".ids", ".idx.gz", ".tgz", ".zip"}
	if !slices.Equal(got, want) {
		t.Fatalf("AllValidExtensions = %v, want %v", got, want)
	}
}
