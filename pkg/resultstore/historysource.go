package resultstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-allure/pkg/history"
)

// HistorySource reads history files straight from the reports uploaded to a
// store, without going through HTTP.
type HistorySource struct {
	Store *Store
	// ReportArtifactName is the artifact name that reports are uploaded as.
	ReportArtifactName string
}

// HasHistory implements history.Source.
func (s HistorySource) HasHistory(ctx context.Context, ref buildref.Ref) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	file, err := s.open(ref, history.FileHistory)
	if errors.Is(err, ErrArtifactNotFound) || errors.Is(err, ErrBuildNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	file.Close()
	return true, nil
}

// FetchFile implements history.Source.
func (s HistorySource) FetchFile(ctx context.Context, ref buildref.Ref, fileName string, w io.Writer) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	file, err := s.open(ref, fileName)
	if errors.Is(err, ErrArtifactNotFound) || errors.Is(err, ErrBuildNotFound) {
		return fmt.Errorf("%w: %s of %s", history.ErrFileNotFound, fileName, ref)
	}
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(w, file)
	return err
}

func (s HistorySource) open(ref buildref.Ref, fileName string) (io.ReadCloser, error) {
	return s.Store.OpenArtifactFile(ref, s.ReportArtifactName, path.Join(history.DirName, fileName))
}
