package errutil

import (
	"errors"
	"strings"
)

// ScopeDelimiter separates the parts of a scope.
const ScopeDelimiter = "/"

// Scoped is an error tied to the item it happened to, such as the artifact
// directory a history copy failed for.
type Scoped struct {
	Scope string
	Err   error
}

// Scope ties the error to the item named by parts. Scoping an already scoped
// error prepends the new parts to the existing scope, so
// Scope(Scope(err, "history"), "/tmp/junit") has scope "/tmp/junit/history".
func Scope(err error, parts ...string) error {
	if err == nil {
		return nil
	}
	scope := strings.Join(parts, ScopeDelimiter)
	var inner Scoped
	if errors.As(err, &inner) {
		return Scoped{
			Scope: scope + ScopeDelimiter + inner.Scope,
			Err:   inner.Err,
		}
	}
	return Scoped{Scope: scope, Err: err}
}

// AsScope returns the scope of the first Scoped error in the chain, or an
// empty string.
func AsScope(err error) string {
	var scoped Scoped
	if errors.As(err, &scoped) {
		return scoped.Scope
	}
	return ""
}

func (err Scoped) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

func (err Scoped) Unwrap() error {
	return err.Err
}
