// Package fileutil holds the filesystem move the ingestor relies on: a move
// that never replaces an existing object, falling back to an
// integrity-checked copy across devices.
package fileutil

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

const exclusiveCreate = os.O_CREATE | os.O_EXCL | os.O_WRONLY

// copyVerified streams src into dst opened with flag, hashing both sides.
// dst is removed when the size or SHA-256 digest differ.
func copyVerified(src, dst string, flag int) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, flag, srcInfo.Mode().Perm())
	if err != nil {
		return err
	}
	defer func() {
		_ = out.Close()
	}()

	srcHasher := sha256.New()
	dstHasher := sha256.New()
	written, err := io.Copy(io.MultiWriter(out, dstHasher), io.TeeReader(in, srcHasher))
	if err != nil {
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if written != srcInfo.Size() {
		_ = os.Remove(dst)
		return fmt.Errorf("copy size mismatch: source %d bytes, copied %d bytes", srcInfo.Size(), written)
	}
	if !bytes.Equal(srcHasher.Sum(nil), dstHasher.Sum(nil)) {
		_ = os.Remove(dst)
		return errors.New("copy hash mismatch: file corrupted during copy")
	}
	return nil
}

// MoveNoReplace moves src to dst and fails with an error matching fs.ErrExist
// when dst already exists. The existence check and the move are one atomic
// step on filesystems that support it. Moves across devices fall back to a
// verified copy into an exclusively created dst followed by removal of src.
func MoveNoReplace(src, dst string) error {
	err := renameNoReplace(src, dst)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrExist) || !isCrossDevice(err) {
		return err
	}
	if err := copyVerified(src, dst, exclusiveCreate); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("remove source after copy: %w", err)
	}
	return nil
}

// linkRename claims dst with a hard link, which fails if dst exists, then
// drops the original name.
func linkRename(src, dst string) error {
	if err := os.Link(src, dst); err != nil {
		return err
	}
	if err := os.Remove(src); err != nil {
		_ = os.Remove(dst)
		return err
	}
	return nil
}
