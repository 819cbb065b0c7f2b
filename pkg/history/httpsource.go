package history

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/iver-wharf/wharf-allure/pkg/buildref"
	"github.com/iver-wharf/wharf-core/v2/pkg/problem"
)

// DefaultProbeTimeout is used by NewHTTPSource when no timeout is given.
const DefaultProbeTimeout = 10 * time.Second

const jsonContentType = "application/json"

// HTTPSource is a Source that reads history files of reports served over
// HTTP, such as by the report server.
//
// Redirects are never followed. A report that redirects elsewhere is
// treated as not having any history.
type HTTPSource struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSource creates a new HTTP source for reports served below the base
// URL. The timeout applies to each request. Zero means DefaultProbeTimeout.
func NewHTTPSource(baseURL string, timeout time.Duration) *HTTPSource {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	return &HTTPSource{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
	}
}

// HasHistory implements Source. It sends a HEAD request for the report's
// history.json and requires a 200 OK with a JSON content type.
func (s *HTTPSource) HasHistory(ctx context.Context, ref buildref.Ref) (bool, error) {
	url := buildref.HistoryFileURL(s.baseURL, ref, FileHistory)
	res, err := s.do(ctx, http.MethodHead, url)
	if err != nil {
		return false, err
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		log.Debug().
			WithString("url", url).
			WithInt("status", res.StatusCode).
			Message("No history found.")
		return false, nil
	}
	return isJSON(res), nil
}

// FetchFile implements Source.
func (s *HTTPSource) FetchFile(ctx context.Context, ref buildref.Ref, file string, w io.Writer) error {
	url := buildref.HistoryFileURL(s.baseURL, ref, file)
	res, err := s.do(ctx, http.MethodGet, url)
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if problem.IsHTTPResponse(res) {
		prob, parseErr := problem.ParseHTTPResponse(res)
		if parseErr != nil {
			return parseErr
		}
		if prob.Status == http.StatusNotFound {
			return fmt.Errorf("%w: %s: %v", ErrFileNotFound, url, prob)
		}
		return prob
	}
	if res.StatusCode != http.StatusOK {
		if res.StatusCode == http.StatusNotFound || isRedirect(res.StatusCode) {
			return fmt.Errorf("%w: %s: %s", ErrFileNotFound, url, res.Status)
		}
		return fmt.Errorf("fetch %s: unexpected status: %s", url, res.Status)
	}
	if _, err := io.Copy(w, res.Body); err != nil {
		return fmt.Errorf("fetch %s: %w", url, err)
	}
	return nil
}

func (s *HTTPSource) do(ctx context.Context, method, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, err
	}
	return s.client.Do(req)
}

func isJSON(res *http.Response) bool {
	return strings.HasPrefix(res.Header.Get("Content-Type"), jsonContentType)
}

func isRedirect(status int) bool {
	return status >= 300 && status < 400
}
