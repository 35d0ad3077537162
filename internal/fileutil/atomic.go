// Package fileutil writes etenda's state files (config, cache, key files)
// through a synced temp file, so readers see either the old content or the
// new content and never a partial write.
package fileutil

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// DirPerm is used for directories created on demand under ~/.etenda.
const DirPerm os.FileMode = 0o700

// ErrEmptyPath indicates an empty file path was provided.
var ErrEmptyPath = errors.New("path is empty")

// WriteAtomic replaces path with data, creating the parent directory when
// it is missing.
func WriteAtomic(path string, data []byte, perm os.FileMode) error {
	return commit(path, data, perm, os.Rename)
}

// CreateAtomic writes data to path only if nothing exists there yet. The
// check and the write are a single step: a concurrent writer that wins makes
// this call fail with an error matching os.ErrExist.
func CreateAtomic(path string, data []byte, perm os.FileMode) error {
	return commit(path, data, perm, func(tmp, dst string) error {
		if err := os.Link(tmp, dst); err != nil {
			return err
		}
		return os.Remove(tmp)
	})
}

// commit stages data next to path and hands the staged file to publish.
func commit(path string, data []byte, perm os.FileMode, publish func(tmp, dst string) error) error {
	if path == "" {
		return ErrEmptyPath
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, DirPerm); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := stage(dir, filepath.Base(path), data, perm)
	if err != nil {
		return err
	}
	if err := publish(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("publishing %s: %w", path, err)
	}
	syncDir(dir)
	return nil
}

// stage writes a hidden sibling file and returns its name once it is on disk.
func stage(dir, base string, data []byte, perm os.FileMode) (string, error) {
	f, err := os.CreateTemp(dir, "."+base+".*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	name := f.Name()

	err = errors.Join(write(f, data, perm), f.Close())
	if err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("staging %s: %w", base, err)
	}
	return name, nil
}

func write(f *os.File, data []byte, perm os.FileMode) error {
	if _, err := f.Write(data); err != nil {
		return err
	}
	if err := f.Chmod(perm); err != nil {
		return err
	}
	return f.Sync()
}

// syncDir flushes the directory entry. Not every platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir) //nolint:gosec // G304: dir derived from path
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
