// Package wharfindex looks up prior builds through the Wharf API. Plan keys
// are Wharf project IDs and build numbers are Wharf build IDs.
package wharfindex

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/iver-wharf/wharf-api-client-go/v2/pkg/wharfapi"
)

// ErrInvalidProjectID is returned when the plan key is not a Wharf project ID.
var ErrInvalidProjectID = errors.New("plan key is not a valid project ID")

// Index is a build history index backed by the Wharf API. Only finished
// builds, both completed and failed, are considered.
type Index struct {
	client wharfapi.Client
}

// New creates an index that talks to the Wharf API at the given URL.
func New(apiURL string) Index {
	return Index{
		client: wharfapi.Client{
			APIURL: apiURL,
		},
	}
}

// FindPriorBuild implements history.Index.
func (i Index) FindPriorBuild(ctx context.Context, planKey string, before uint) (uint, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}
	projectID, err := parseProjectID(planKey)
	if err != nil {
		return 0, false, err
	}
	limit := 0
	page, err := i.client.GetBuildList(wharfapi.BuildSearch{
		Limit:     &limit,
		ProjectID: &projectID,
		StatusID: []int{
			int(wharfapi.BuildCompleted),
			int(wharfapi.BuildFailed),
		},
	})
	if err != nil {
		return 0, false, fmt.Errorf("list builds of project %d: %w", projectID, err)
	}
	var prior uint
	for _, b := range page.List {
		if b.BuildID < before && b.BuildID > prior {
			prior = b.BuildID
		}
	}
	return prior, prior != 0, nil
}

func parseProjectID(planKey string) (uint, error) {
	id, err := strconv.ParseUint(planKey, 10, 0)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidProjectID, planKey)
	}
	return uint(id), nil
}
