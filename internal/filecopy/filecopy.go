// Package filecopy copies files and directory trees on the local filesystem.
package filecopy

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const dirFileMode fs.FileMode = 0775

// CopyFile copies the content and permission bits of src to dst, truncating
// any existing file at dst.
func CopyFile(dst, src string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open src: %w", err)
	}
	defer in.Close()
	stat, err := in.Stat()
	if err != nil {
		return fmt.Errorf("stat src: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, stat.Mode().Perm())
	if err != nil {
		return fmt.Errorf("open dst: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}

// CopyDir merges the tree at src into dst, creating dst if needed and
// overwriting files that already exist there. Only regular files and
// directories are copied; symlinks, devices and sockets are skipped.
func CopyDir(dst, src string) error {
	if err := os.MkdirAll(dst, dirFileMode); err != nil {
		return fmt.Errorf("create dst dir: %w", err)
	}
	return filepath.WalkDir(src, func(srcPath string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, srcPath)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		dstPath := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			if err := os.Mkdir(dstPath, dirFileMode); err != nil && !os.IsExist(err) {
				return err
			}
			return nil
		case d.Type().IsRegular():
			return CopyFile(dstPath, srcPath)
		default:
			return nil
		}
	})
}
