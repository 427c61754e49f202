package fileserver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"hrmq/internal/config"
	"hrmq/internal/fileutil"
	"hrmq/internal/logging"
)

// extraExtensions are companion files accepted next to images when asked for.
var extraExtensions = []string{"ids", "idx.gz"}

const formatsCacheKey = "image_extensions"

// FormatSource lists the registered image file extensions.
type FormatSource interface {
	AllFileExtensions(ctx context.Context) ([]string, error)
}

// Option configures the ingestor.
type Option func(*Ingestor)

// WithRunner injects a custom command runner (primarily for tests).
func WithRunner(r Runner) Option {
	return func(in *Ingestor) {
		if r != nil {
			in.runner = r
		}
	}
}

// Ingestor places uploaded files into managed storage.
type Ingestor struct {
	archives map[string]string
	timeout  time.Duration
	formats  FormatSource
	cache    *cache.Cache
	runner   Runner
	logger   *slog.Logger
}

// New builds an ingestor from the ingest section of cfg.
func New(cfg *config.Config, formats FormatSource, logger *slog.Logger, opts ...Option) *Ingestor {
	in := &Ingestor{
		archives: make(map[string]string),
		formats:  formats,
		runner:   commandRunner{},
		logger:   logging.NewComponentLogger(logger, "fileserver"),
	}
	if cfg != nil {
		for ext, tmpl := range cfg.Ingest.Archives {
			in.archives[config.NormalizeExtension(ext)] = tmpl
		}
		if cfg.Ingest.DecompressTimeout > 0 {
			in.timeout = time.Duration(cfg.Ingest.DecompressTimeout) * time.Second
		}
		if cfg.Ingest.ExtensionCacheSeconds > 0 {
			ttl := time.Duration(cfg.Ingest.ExtensionCacheSeconds) * time.Second
			in.cache = cache.New(ttl, 2*ttl)
		}
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// MoveUploadedFile moves file into destDir and returns the path it now lives
// at. Archives are expanded into a fresh folder named after the archive, and
// the folder is returned. The first failing step aborts the move.
func (in *Ingestor) MoveUploadedFile(ctx context.Context, file, destDir string) (string, error) {
	info, err := os.Stat(file)
	if err != nil || info.IsDir() {
		return "", wrap(ErrNotFound, "move upload", fmt.Sprintf("the file %s does not exist", file), err)
	}

	baseName := SanitizeBaseName(filepath.Base(file))
	extension := FileNameExtension(baseName)
	body := BodyName(baseName)

	if in.IsArchiveFile(baseName) {
		return in.expandUpload(ctx, file, destDir, body)
	}

	if !in.IsValidImage(ctx, baseName, false) {
		return "", wrap(ErrUnsupportedFormat, "move upload", fmt.Sprintf("the file %s is not a valid image", file), nil)
	}

	target, err := in.claimFile(file, destDir, body, extension)
	if err != nil {
		return "", err
	}
	in.logger.Info("upload ingested",
		logging.String(logging.FieldEventType, "upload_ingested"),
		logging.String("source", file),
		logging.String("destination", target),
	)
	return target, nil
}

func (in *Ingestor) expandUpload(ctx context.Context, file, destDir, body string) (string, error) {
	folder, err := claimDir(destDir, body)
	if err != nil {
		return "", err
	}
	if err := in.DecompressArchive(ctx, file, folder); err != nil {
		RemoveDirAndContent(folder)
		return "", err
	}
	if err := os.Remove(file); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logging.WarnWithContext(in.logger, "archive not removed after expansion", "archive_cleanup_failed",
			logging.String("archive", file),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check permissions on the upload directory"),
			logging.String(logging.FieldImpact, "the archive stays in the upload directory"),
		)
	}
	in.logger.Info("archive expanded",
		logging.String(logging.FieldEventType, "archive_expanded"),
		logging.String("archive", file),
		logging.String("destination", folder),
	)
	return folder, nil
}

// claimDir creates the first free body[_n] folder in destDir.
func claimDir(destDir, body string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", wrap(ErrMoveFailed, "create destination", destDir, err)
	}
	for n := 0; n <= MaxSuffix; n++ {
		candidate := candidateName(destDir, body, "", n)
		err := os.Mkdir(candidate, 0o755)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", wrap(ErrMoveFailed, "create folder", candidate, err)
		}
	}
	return "", wrap(ErrTooManyCollisions, "create folder", "too many folders with the same base name "+body, nil)
}

// claimFile moves file to the first free body[_n].ext in destDir.
func (in *Ingestor) claimFile(file, destDir, body, extension string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", wrap(ErrMoveFailed, "create destination", destDir, err)
	}
	for n := 0; n <= MaxSuffix; n++ {
		candidate := candidateName(destDir, body, extension, n)
		err := fileutil.MoveNoReplace(file, candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", wrap(ErrMoveFailed, "move upload", "failed moving "+filepath.Base(file)+" to its final destination", err)
		}
	}
	return "", wrap(ErrTooManyCollisions, "move upload", "too many files with the same base name "+body, nil)
}

// IsArchiveFile reports whether name has an extension with a configured
// decompression command.
func (in *Ingestor) IsArchiveFile(name string) bool {
	_, ok := in.archives[strings.ToLower(FileNameExtension(name))]
	return ok
}

// IsValidImage reports whether name carries a registered image extension or,
// when alsoExtras is set, one of the companion extensions.
func (in *Ingestor) IsValidImage(ctx context.Context, name string, alsoExtras bool) bool {
	extension := strings.ToLower(FileNameExtension(name))
	if extension == "" {
		return false
	}
	formats, err := in.imageExtensions(ctx)
	if err != nil {
		logging.WarnWithContext(in.logger, "image formats unavailable", "image_formats_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "run hrmq queue health"),
			logging.String(logging.FieldImpact, "upload rejected as unsupported"),
		)
	}
	if slices.Contains(formats, extension) {
		return true
	}
	return alsoExtras && slices.Contains(extraExtensions, extension)
}

// AllValidExtensions returns the image, companion, and archive extensions,
// optionally with a leading dot.
func (in *Ingestor) AllValidExtensions(ctx context.Context, withDot bool) ([]string, error) {
	images, err := in.imageExtensions(ctx)
	if err != nil {
		return nil, err
	}
	archives := make([]string, 0, len(in.archives))
	for ext := range in.archives {
		archives = append(archives, ext)
	}
	sort.Strings(archives)

	all := make([]string, 0, len(images)+len(extraExtensions)+len(archives))
	all = append(all, images...)
	all = append(all, extraExtensions...)
	all = append(all, archives...)
	if withDot {
		for i, ext := range all {
			all[i] = "." + ext
		}
	}
	return all, nil
}

// InvalidateFormats drops the cached list of image extensions.
func (in *Ingestor) InvalidateFormats() {
	if in.cache != nil {
		in.cache.Delete(formatsCacheKey)
	}
}

func (in *Ingestor) imageExtensions(ctx context.Context) ([]string, error) {
	if in.cache != nil {
		if cached, ok := in.cache.Get(formatsCacheKey); ok {
			return cached.([]string), nil
		}
	}
	if in.formats == nil {
		return nil, errors.New("no image format source configured")
	}
	raw, err := in.formats.AllFileExtensions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list image formats: %w", err)
	}
	formats := make([]string, 0, len(raw))
	for _, ext := range raw {
		if ext = config.NormalizeExtension(ext); ext != "" {
			formats = append(formats, ext)
		}
	}
	if in.cache != nil {
		in.cache.SetDefault(formatsCacheKey, formats)
	}
	return formats, nil
}
