package ziputil

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/iver-wharf/wharf-allure/internal/filecopy"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("ZIP")

const dirFileMode fs.FileMode = 0775

// ErrIllegalPath is returned for archive entries that would be extracted
// outside the destination directory.
var ErrIllegalPath = errors.New("illegal path in archive entry")

// Unpack extracts all entries of the zip archive into the destination
// directory, creating it if needed.
//
// A corrupt archive is logged and extraction stops at the first bad entry.
// Whatever was extracted until then is left in place, and it is up to the
// caller to decide if the partial content is usable. Only failures to open
// the archive file or to create the destination directory are returned.
func Unpack(archivePath, destDir string) error {
	file, err := os.Open(archivePath)
	if err != nil {
		return err
	}
	defer file.Close()
	stat, err := file.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(destDir, dirFileMode); err != nil {
		return err
	}
	zr, err := zip.NewReader(file, stat.Size())
	if err != nil {
		log.Error().
			WithString("archive", filepath.Base(archivePath)).
			WithError(err).
			Message("Unable to unpack archive.")
		return nil
	}
	for _, entry := range zr.File {
		if err := extractEntry(entry, destDir); err != nil {
			if errors.Is(err, ErrIllegalPath) {
				log.Warn().
					WithString("archive", filepath.Base(archivePath)).
					WithString("entry", entry.Name).
					Message("Skipping archive entry outside destination.")
				continue
			}
			log.Error().
				WithString("archive", filepath.Base(archivePath)).
				WithString("entry", entry.Name).
				WithError(err).
				Message("Unable to unpack archive.")
			return nil
		}
	}
	return nil
}

func extractEntry(entry *zip.File, destDir string) error {
	target, err := entryTarget(destDir, entry.Name)
	if err != nil {
		return err
	}
	if entry.FileInfo().IsDir() {
		return os.MkdirAll(target, dirFileMode)
	}
	if err := os.MkdirAll(filepath.Dir(target), dirFileMode); err != nil {
		return err
	}
	src, err := entry.Open()
	if err != nil {
		return err
	}
	defer src.Close()
	mode := entry.Mode().Perm()
	if mode == 0 {
		mode = 0644
	}
	dst, err := os.OpenFile(target, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, mode)
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func entryTarget(destDir, name string) (string, error) {
	target := filepath.Join(destDir, filepath.FromSlash(name))
	rel, err := filepath.Rel(destDir, target)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %q", ErrIllegalPath, name)
	}
	return target, nil
}

// Pack will recursively zip the contents of an entire directory into a zip
// archive at the destination path. The name of the source directory is not
// included in the archive, but instead only the children.
//
// The archive is first written to a private temporary directory and then
// moved onto the destination path, replacing any existing file.
func Pack(srcDir, destPath string) error {
	tmpDir, err := os.MkdirTemp("", "wharf-allure-zip-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmpDir)
	tmpPath := filepath.Join(tmpDir, "archive.zip")
	tmpFile, err := os.Create(tmpPath)
	if err != nil {
		return err
	}
	if err := Dir(tmpFile, srcDir); err != nil {
		tmpFile.Close()
		return fmt.Errorf("zip dir %q: %w", srcDir, err)
	}
	if err := tmpFile.Close(); err != nil {
		return err
	}
	return moveFile(destPath, tmpPath)
}

func moveFile(dst, src string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// Rename fails across devices, so fall back to copying.
	if err := filecopy.CopyFile(dst, src); err != nil {
		return fmt.Errorf("move archive: %w", err)
	}
	return os.Remove(src)
}

// Dir will recursively zip the contents of an entire directory into the
// writer. Hidden files (files that start with a dot) are included.
func Dir(w io.Writer, dirPath string) error {
	rootDirPath, err := filepath.Abs(dirPath)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	fileSys := os.DirFS(rootDirPath)
	err = fs.WalkDir(fileSys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == "." {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		header, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		header.Name = path
		if d.IsDir() {
			header.Name += "/"
			_, err := zw.CreateHeader(header)
			return err
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		header.Method = zip.Deflate
		entry, err := zw.CreateHeader(header)
		if err != nil {
			return err
		}
		file, err := os.Open(filepath.Join(rootDirPath, filepath.FromSlash(path)))
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(entry, file)
		return err
	})
	if err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}
