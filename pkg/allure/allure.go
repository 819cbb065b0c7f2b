package allure

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cli/safeexec"
	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
)

var log = logger.NewScoped("ALLURE")

// BinaryName is the name of the Allure command line binary.
const BinaryName = "allure"

// ErrUnknownExecutable is returned when looking up an executable name that has
// not been configured.
var ErrUnknownExecutable = errors.New("unknown allure executable")

// Generator generates an HTML report from a set of result directories.
type Generator interface {
	Generate(ctx context.Context, inputDirs []string, outputDir string) error
}

// Registry maps executable names, such as "allure-2.7.0", to Allure
// installation directories. An empty installation directory means the
// allure binary is looked up from the PATH.
type Registry map[string]string

// Names returns the sorted executable names.
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for name := range r {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Provide returns the executable registered by the given name.
func (r Registry) Provide(name string) (Generator, error) {
	home, ok := r[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q, known executables: %s",
			ErrUnknownExecutable, name, strings.Join(r.Names(), ", "))
	}
	return Executable{Name: name, Home: home}, nil
}

// Executable is an Allure command line installation.
type Executable struct {
	Name string
	Home string
}

// BinPath returns the path to the allure binary.
func (e Executable) BinPath() (string, error) {
	if e.Home == "" {
		return safeexec.LookPath(BinaryName)
	}
	return filepath.Join(e.Home, "bin", BinaryName), nil
}

// Generate runs "allure generate" over the input directories and writes the
// report into the output directory, replacing any previous content there.
// The error contains the combined output of the process on failure.
func (e Executable) Generate(ctx context.Context, inputDirs []string, outputDir string) error {
	bin, err := e.BinPath()
	if err != nil {
		return fmt.Errorf("find allure binary for executable %q: %w", e.Name, err)
	}
	args := append([]string{"generate", "--clean", "-o", outputDir}, inputDirs...)
	cmd := exec.CommandContext(ctx, bin, args...)
	log.Debug().
		WithString("executable", e.Name).
		WithString("bin", bin).
		WithStringf("args", "%q", args).
		Message("Running allure.")
	out, err := cmd.CombinedOutput()
	out = bytes.TrimSpace(out)
	if err != nil {
		return convExecError(err, out, bin)
	}
	log.Debug().
		WithString("executable", e.Name).
		WithString("output", string(out)).
		Message("Allure finished.")
	return nil
}

func convExecError(err error, out []byte, bin string) error {
	var execErr *exec.Error
	if errors.As(err, &execErr) {
		// The exec error contains enough context.
		return err
	}
	if len(out) == 0 {
		return fmt.Errorf("exec %q generate: %w", bin, err)
	}
	return fmt.Errorf("exec %q generate: %w\n%s", bin, err, out)
}
