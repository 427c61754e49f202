package fileserver_test

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"hrmq/internal/fileserver"
)

func TestFileNameExtension(t *testing.T) {
	cases := []struct {
		name string
		want string
	}{
		{"scan.ome.tif", "ome.tif"},
		{"scan.tif", "tif"},
		{"/data/user/src/scan.ome.tiff", "ome.tiff"},
		{"batch.tar.gz", "tar.gz"},
		{"experiment.longsegment.tif", "tif"},
		{"noextension", ""},
		{"dotted..tif", "tif"},
		{"run.idx.gz", "idx.gz"},
	}
	for _, tc := range cases {
		if got := fileserver.FileNameExtension(tc.name); got != tc.want {
			t.Fatalf("FileNameExtension(%q) = %q, want %q", tc.name, got, tc.want)
		}
	}
}

func TestBodyName(t *testing.T) {
	cases := map[string]string{
		"scan.ome.tif":               "scan",
		"scan.tif":                   "scan",
		"batch.tar.gz":               "batch",
		"experiment.longsegment.tif": "experiment.longsegment",
		"noextension":                "noextension",
	}
	for in, want := range cases {
		if got := fileserver.BodyName(in); got != want {
			t.Fatalf("BodyName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSanitizeBaseName(t *testing.T) {
	if got := fileserver.SanitizeBaseName("my scan 01.tif"); got != "my_scan_01.tif" {
		t.Fatalf("unexpected sanitized name %q", got)
	}
	decomposed := "cafe\u0301.tif"
	if got := fileserver.SanitizeBaseName(decomposed); got != "caf\u00e9.tif" {
		t.Fatalf("expected NFC normalization, got %q", got)
	}
}

func TestValidFileOrDirName(t *testing.T) {
	dir := t.TempDir()

	got, err := fileserver.ValidFileOrDirName(dir, "foo", "tif")
	if err != nil {
		t.Fatalf("ValidFileOrDirName: %v", err)
	}
	if got != filepath.Join(dir, "foo.tif") {
		t.Fatalf("unexpected name %q", got)
	}

	touch(t, filepath.Join(dir, "foo.tif"))
	got, err = fileserver.ValidFileOrDirName(dir, "foo", ".tif")
	if err != nil {
		t.Fatalf("ValidFileOrDirName: %v", err)
	}
	if filepath.Base(got) != "foo_1.tif" {
		t.Fatalf("expected foo_1.tif, got %q", got)
	}

	got, err = fileserver.ValidFileOrDirName(dir, "foo", "")
	if err != nil {
		t.Fatalf("ValidFileOrDirName: %v", err)
	}
	if filepath.Base(got) != "foo" {
		t.Fatalf("expected folder name foo, got %q", got)
	}
}

func TestValidFileOrDirNameExhausted(t *testing.T) {
	dir := t.TempDir()
	fillCollisions(t, dir, "foo", "tif")

	if _, err := fileserver.ValidFileOrDirName(dir, "foo", "tif"); !errors.Is(err, fileserver.ErrTooManyCollisions) {
		t.Fatalf("expected ErrTooManyCollisions, got %v", err)
	}
}

func TestRemoveDirAndContent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "expanded")
	touch(t, filepath.Join(dir, "nested", "a.tif"))

	fileserver.RemoveDirAndContent(dir)
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected %s removed, stat err=%v", dir, err)
	}
	fileserver.RemoveDirAndContent(dir)
}

func touch(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

// fillCollisions creates body.ext and body_1.ext through body_1000.ext.
func fillCollisions(t *testing.T, dir, body, ext string) {
	t.Helper()
	touch(t, filepath.Join(dir, body+"."+ext))
	for n := 1; n <= fileserver.MaxSuffix; n++ {
		touch(t, filepath.Join(dir, body+"_"+strconv.Itoa(n)+"."+ext))
	}
}
