package resultstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/iver-wharf/wharf-allure/internal/filecopy"
	"github.com/iver-wharf/wharf-allure/internal/ziputil"
	"github.com/iver-wharf/wharf-allure/pkg/buildref"
)

// ArtifactMeta describes one stored artifact.
type ArtifactMeta struct {
	Name string `json:"name"`
	// Zipped is true if the artifact is stored as a zip archive.
	Zipped bool   `json:"zipped"`
	Path   string `json:"-"`
}

// ListArtifacts returns the build's artifacts sorted by name. A directory and
// a zip archive sharing the same name are listed once, as the directory.
func (s *Store) ListArtifacts(ref buildref.Ref) ([]ArtifactMeta, error) {
	dir, err := s.existingBuildDir(ref)
	if err != nil {
		return nil, err
	}
	artifactsDir := filepath.Join(dir, artifactsDirName)
	entries, err := os.ReadDir(artifactsDir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list artifacts of %s: %w", ref, err)
	}
	byName := make(map[string]ArtifactMeta, len(entries))
	for _, entry := range entries {
		entryPath := filepath.Join(artifactsDir, entry.Name())
		switch {
		case entry.IsDir():
			byName[entry.Name()] = ArtifactMeta{Name: entry.Name(), Path: entryPath}
		case entry.Type().IsRegular() && strings.HasSuffix(entry.Name(), zipExt):
			name := strings.TrimSuffix(entry.Name(), zipExt)
			if _, ok := byName[name]; ok {
				continue
			}
			byName[name] = ArtifactMeta{Name: name, Zipped: true, Path: entryPath}
		}
	}
	metas := make([]ArtifactMeta, 0, len(byName))
	for _, meta := range byName {
		metas = append(metas, meta)
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Name < metas[j].Name
	})
	return metas, nil
}

// DownloadArtifacts copies the build's artifacts into the destination
// directory, one subdirectory per artifact, and returns the paths to those
// subdirectories. Zipped artifacts are unpacked. If nameFilter is non-empty
// then only the artifact with that name is downloaded. Artifacts named in
// exclude are never downloaded, even if they match the filter.
//
// Artifacts that end up empty, such as corrupt archives, are left out.
func (s *Store) DownloadArtifacts(ctx context.Context, ref buildref.Ref, destDir, nameFilter string, exclude ...string) ([]string, error) {
	metas, err := s.ListArtifacts(ref)
	if err != nil {
		return nil, err
	}
	var paths []string
	for _, meta := range metas {
		if nameFilter != "" && meta.Name != nameFilter {
			continue
		}
		if isExcluded(meta.Name, exclude) {
			log.Debug().
				WithStringer("build", ref).
				WithString("artifact", meta.Name).
				Message("Skipping excluded artifact.")
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dst := filepath.Join(destDir, meta.Name)
		if meta.Zipped {
			err = ziputil.Unpack(meta.Path, dst)
		} else {
			err = filecopy.CopyDir(dst, meta.Path)
		}
		if err != nil {
			return nil, fmt.Errorf("download artifact %q of %s: %w", meta.Name, ref, err)
		}
		empty, err := isEmptyDir(dst)
		if err != nil {
			return nil, err
		}
		if empty {
			log.Warn().
				WithStringer("build", ref).
				WithString("artifact", meta.Name).
				Message("Skipping empty artifact.")
		} else {
			log.Debug().
				WithStringer("build", ref).
				WithString("artifact", meta.Name).
				WithString("dst", dst).
				Message("Downloaded artifact.")
			paths = append(paths, dst)
		}
		if nameFilter != "" {
			// Artifact names are unique.
			break
		}
	}
	return paths, nil
}

func isExcluded(name string, exclude []string) bool {
	for _, ex := range exclude {
		if name == ex {
			return true
		}
	}
	return false
}

// UploadDirectory stores the contents of a directory as an artifact of the
// build, replacing any artifact with the same name.
func (s *Store) UploadDirectory(ctx context.Context, ref buildref.Ref, name, dir string) error {
	if err := validateArtifactName(name); err != nil {
		return err
	}
	if err := s.CreateBuild(ref); err != nil {
		return err
	}
	buildDir, err := s.buildDir(ref)
	if err != nil {
		return err
	}
	dst := filepath.Join(buildDir, artifactsDirName, name)
	if err := os.RemoveAll(dst); err != nil {
		return fmt.Errorf("remove old artifact %q of %s: %w", name, ref, err)
	}
	if err := os.Remove(dst + zipExt); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove old artifact %q of %s: %w", name, ref, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := filecopy.CopyDir(dst, dir); err != nil {
		return fmt.Errorf("upload artifact %q of %s: %w", name, ref, err)
	}
	log.Info().
		WithStringer("build", ref).
		WithString("artifact", name).
		Message("Uploaded artifact.")
	return nil
}

// ArtifactDir returns the path to an unzipped artifact directory.
func (s *Store) ArtifactDir(ref buildref.Ref, name string) (string, error) {
	if err := validateArtifactName(name); err != nil {
		return "", err
	}
	buildDir, err := s.existingBuildDir(ref)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(buildDir, artifactsDirName, name)
	stat, err := os.Stat(dir)
	if err != nil || !stat.IsDir() {
		return "", fmt.Errorf("%w: %q of %s", ErrArtifactNotFound, name, ref)
	}
	return dir, nil
}

// OpenArtifactFile opens a regular file inside an unzipped artifact. The
// relative path is cleaned and may not point outside of the artifact.
func (s *Store) OpenArtifactFile(ref buildref.Ref, name, relPath string) (*os.File, error) {
	dir, err := s.ArtifactDir(ref, name)
	if err != nil {
		return nil, err
	}
	cleaned := filepath.FromSlash(path.Clean("/" + relPath))
	filePath := filepath.Join(dir, cleaned)
	stat, err := os.Stat(filePath)
	if err != nil || !stat.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %q in %q of %s", ErrArtifactNotFound, relPath, name, ref)
	}
	return os.Open(filePath)
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
