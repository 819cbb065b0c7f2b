package resultstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strconv"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
)

// FindPriorBuild returns the highest build number in the plan that is lower
// than the given build number. The boolean is false if there is no such
// build.
func (s *Store) FindPriorBuild(ctx context.Context, planKey string, before uint) (uint, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	numbers, err := s.ListBuilds(planKey)
	if err != nil {
		return 0, false, err
	}
	for i := len(numbers) - 1; i >= 0; i-- {
		if numbers[i] < before {
			return numbers[i], true, nil
		}
	}
	return 0, false, nil
}

// ListBuilds returns the plan's build numbers in ascending order. Entries
// that are not build directories are ignored.
func (s *Store) ListBuilds(planKey string) ([]uint, error) {
	dir, err := s.planDir(planKey)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list builds of plan %q: %w", planKey, err)
	}
	var numbers []uint
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		n, err := strconv.ParseUint(entry.Name(), 10, 0)
		if err != nil || n == 0 {
			continue
		}
		numbers = append(numbers, uint(n))
	}
	// os.ReadDir sorts by name, not by numeric value
	sort.Slice(numbers, func(i, j int) bool {
		return numbers[i] < numbers[j]
	})
	return numbers, nil
}

// HasBuild returns true if a build result exists for the reference.
func (s *Store) HasBuild(ref buildref.Ref) bool {
	_, err := s.existingBuildDir(ref)
	return err == nil
}
