package parallel

import (
	"context"
	"sync"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
)

// Func is a function declaration used in parallel runs.
type Func func(ctx context.Context) error

type task struct {
	name string
	f    Func
}

// Group is a list of functions to run in parallel.
type Group []task

// AddFunc adds a function to the group to later be used in the parallel call.
// The name is used as the scope of the error, if any.
func (g *Group) AddFunc(name string, f Func) {
	*g = append(*g, task{name, f})
}

// RunAll will run all functions in parallel in separate goroutines, with at
// most limit functions running at the same time. A limit of zero or less
// means no limit. Failing functions do not cancel the others.
//
// All errors are returned, scoped with the name of the function that
// produced them, in the same order as the functions were added.
func (g *Group) RunAll(ctx context.Context, limit int) errutil.Slice {
	tasks := *g
	if len(tasks) == 0 {
		return nil
	}
	if limit <= 0 || limit > len(tasks) {
		limit = len(tasks)
	}
	errs := make([]error, len(tasks))
	sem := make(chan struct{}, limit)
	var wg sync.WaitGroup
	wg.Add(len(tasks))
	for i, t := range tasks {
		sem <- struct{}{}
		go func(i int, t task) {
			defer wg.Done()
			defer func() { <-sem }()
			errs[i] = errutil.Scope(t.f(ctx), t.name)
		}(i, t)
	}
	wg.Wait()

	var result errutil.Slice
	result.Add(errs...)
	return result
}
