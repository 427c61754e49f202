package fileserver

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// MaxSuffix bounds the numeric suffixes tried when a name is taken.
const MaxSuffix = 1000

// SanitizeBaseName normalizes a file name to NFC and replaces spaces with
// underscores.
func SanitizeBaseName(name string) string {
	return strings.ReplaceAll(norm.NFC.String(name), " ", "_")
}

// FileNameExtension returns the extension of name without the leading dot.
// Double extensions such as "ome.tif" or "tar.gz" are returned whole when
// the inner component is at most four characters long; otherwise only the
// last component is returned.
func FileNameExtension(name string) string {
	base := filepath.Base(name)
	idx := strings.LastIndexByte(base, '.')
	if idx < 0 {
		return ""
	}
	ext := base[idx+1:]
	stem := base[:idx]
	inner := strings.LastIndexByte(stem, '.')
	if inner < 0 {
		return ext
	}
	innerExt := stem[inner+1:]
	if innerExt == "" || len(innerExt) > 4 {
		return ext
	}
	return innerExt + "." + ext
}

// BodyName returns the base name of file with its extension removed.
func BodyName(name string) string {
	base := filepath.Base(name)
	ext := FileNameExtension(base)
	if ext == "" {
		return base
	}
	return strings.TrimSuffix(base, "."+ext)
}

// candidateName builds body[.ext] for n == 0 and body_n[.ext] otherwise.
func candidateName(destDir, body, ext string, n int) string {
	name := body
	if n > 0 {
		name += "_" + strconv.Itoa(n)
	}
	if ext = strings.TrimLeft(ext, "."); ext != "" {
		name += "." + ext
	}
	return filepath.Join(destDir, name)
}

// ValidFileOrDirName returns the first of body[.ext], body_1[.ext], ...,
// body_1000[.ext] in destDir that does not exist. It only checks for
// existence; callers that create the object afterwards race with other
// writers.
func ValidFileOrDirName(destDir, body, ext string) (string, error) {
	for n := 0; n <= MaxSuffix; n++ {
		candidate := candidateName(destDir, body, ext, n)
		if _, err := os.Lstat(candidate); errors.Is(err, fs.ErrNotExist) {
			return candidate, nil
		}
	}
	return "", wrap(ErrTooManyCollisions, "resolve name", body, nil)
}

// RemoveDirAndContent deletes dir and everything below it. Errors are ignored.
func RemoveDirAndContent(dir string) {
	if strings.TrimSpace(dir) == "" {
		return
	}
	_ = os.RemoveAll(dir)
}
