package fileserver

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound            = errors.New("file not found")
	ErrUnsupportedFormat   = errors.New("unsupported file format")
	ErrTooManyCollisions   = errors.New("too many files with the same base name")
	ErrDecompressionFailed = errors.New("archive decompression failed")
	ErrMoveFailed          = errors.New("move failed")
)

// wrap tags err with one of the sentinels above and prefixes the operation
// and a human-readable message.
func wrap(marker error, operation, message string, err error) error {
	parts := make([]string, 0, 2)
	if operation = strings.TrimSpace(operation); operation != "" {
		parts = append(parts, operation)
	}
	if message = strings.TrimSpace(message); message != "" {
		parts = append(parts, message)
	}
	detail := strings.Join(parts, ": ")
	if detail == "" {
		detail = "ingest failure"
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}
