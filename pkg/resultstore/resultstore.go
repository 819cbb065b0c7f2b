// Package resultstore is a filesystem backed store of build results. It acts
// as the artifact store, custom data sink, and build history index for hosts
// that keep their build results on disk.
//
// The directory layout is:
//
//	{root}/{planKey}/{buildNumber}/artifacts/{artifactName}/...
//	{root}/{planKey}/{buildNumber}/artifacts/{artifactName}.zip
//	{root}/{planKey}/{buildNumber}/customdata.json
package resultstore

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("RESULTSTORE")

const dirFileMode fs.FileMode = 0775

const (
	artifactsDirName   = "artifacts"
	customDataFileName = "customdata.json"
	zipExt             = ".zip"
)

// Errors returned by the store.
var (
	ErrBuildNotFound       = errors.New("build result not found")
	ErrArtifactNotFound    = errors.New("artifact not found")
	ErrInvalidArtifactName = errors.New("invalid artifact name")
)

// Store is a build result store rooted in a directory.
type Store struct {
	root string
}

// New creates a store that keeps all build results inside the root directory.
// The root directory is created if it does not exist.
func New(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, dirFileMode); err != nil {
		return nil, fmt.Errorf("create store root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute path to the store's root directory.
func (s *Store) Root() string {
	return s.root
}

// CreateBuild creates the directory for a build result, if it doesn't exist.
func (s *Store) CreateBuild(ref buildref.Ref) error {
	dir, err := s.buildDir(ref)
	if err != nil {
		return err
	}
	return os.MkdirAll(filepath.Join(dir, artifactsDirName), dirFileMode)
}

func (s *Store) planDir(planKey string) (string, error) {
	if err := (buildref.Ref{PlanKey: planKey, Number: 1}).Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, planKey), nil
}

func (s *Store) buildDir(ref buildref.Ref) (string, error) {
	if err := ref.Validate(); err != nil {
		return "", err
	}
	return filepath.Join(s.root, ref.PlanKey, strconv.FormatUint(uint64(ref.Number), 10)), nil
}

func (s *Store) existingBuildDir(ref buildref.Ref) (string, error) {
	dir, err := s.buildDir(ref)
	if err != nil {
		return "", err
	}
	stat, err := os.Stat(dir)
	if errors.Is(err, fs.ErrNotExist) || (err == nil && !stat.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrBuildNotFound, ref)
	}
	if err != nil {
		return "", err
	}
	return dir, nil
}

func validateArtifactName(name string) error {
	if name == "" || name == "." || name == ".." ||
		strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: %q", ErrInvalidArtifactName, name)
	}
	return nil
}
