// Package persist provides crash-safe file writes. Payloads land in a
// temp file in the destination directory, get synced and chmodded
// 0600, then replace the destination with a rename.
package persist

import (
	"io"
	"os"
	"path/filepath"
)

// Atomic streams a payload into path through fn. The destination is
// only replaced after the temp file is fully written and synced; every
// failure path removes the temp file.
func Atomic(path string, fn func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}
	if err := tmp.Chmod(0o600); err != nil {
		cleanup()
		return err
	}
	if err := fn(tmp); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

// WriteFile atomically replaces path with data.
func WriteFile(path string, data []byte) error {
	return Atomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
