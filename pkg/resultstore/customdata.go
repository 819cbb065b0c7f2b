package resultstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/rogpeppe/go-internal/lockedfile"
)

// PutCustomData merges the key-value pairs into the build's custom data.
// Existing keys are overwritten. The build result is created if it does not
// already exist.
//
// The custom data file is locked while it is updated, so concurrent writers
// from other processes do not lose each other's values.
func (s *Store) PutCustomData(ctx context.Context, ref buildref.Ref, values map[string]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.CreateBuild(ref); err != nil {
		return err
	}
	dir, err := s.buildDir(ref)
	if err != nil {
		return err
	}
	file, err := lockedfile.Edit(filepath.Join(dir, customDataFileName))
	if err != nil {
		return fmt.Errorf("open custom data of %s: %w", ref, err)
	}
	defer file.Close()

	data, err := readCustomData(file)
	if err != nil {
		return fmt.Errorf("read custom data of %s: %w", ref, err)
	}
	for k, v := range values {
		data[k] = v
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if err := file.Truncate(0); err != nil {
		return err
	}
	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(data); err != nil {
		return fmt.Errorf("write custom data of %s: %w", ref, err)
	}
	return nil
}

// ReadCustomData returns the build's custom data. A build without any custom
// data returns an empty map.
func (s *Store) ReadCustomData(ctx context.Context, ref buildref.Ref) (map[string]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	dir, err := s.existingBuildDir(ref)
	if err != nil {
		return nil, err
	}
	file, err := lockedfile.Open(filepath.Join(dir, customDataFileName))
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open custom data of %s: %w", ref, err)
	}
	defer file.Close()
	data, err := readCustomData(file)
	if err != nil {
		return nil, fmt.Errorf("read custom data of %s: %w", ref, err)
	}
	return data, nil
}

func readCustomData(r io.Reader) (map[string]string, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	data := map[string]string{}
	if len(b) == 0 {
		return data, nil
	}
	if err := json.Unmarshal(b, &data); err != nil {
		return nil, err
	}
	if data == nil {
		// A file containing "null" decodes into a nil map.
		data = map[string]string{}
	}
	return data, nil
}
