//go:build !linux

package fileutil

func renameNoReplace(src, dst string) error {
	return linkRename(src, dst)
}

func isCrossDevice(error) bool {
	return false
}
