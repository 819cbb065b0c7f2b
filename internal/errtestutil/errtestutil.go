package errtestutil

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/iver-wharf/wharf-allure/internal/errutil"
)

// RequireContainsErr fails the test if no error in the slice Is the given
// error.
func RequireContainsErr(t *testing.T, errs errutil.Slice, err error) {
	t.Helper()
	for _, e := range errs {
		if errors.Is(e, err) {
			return
		}
	}
	t.Fatalf("\nexpected contains error: %q\nactual: (len=%d)\n%s",
		err, len(errs), formatSlice("  - ", errs))
}

// RequireContainsScope fails the test if no error in the slice has the given
// scope.
func RequireContainsScope(t *testing.T, errs errutil.Slice, scope string) {
	t.Helper()
	for _, e := range errs {
		if errutil.AsScope(e) == scope {
			return
		}
	}
	t.Fatalf("\nexpected contains error with scope: %q\nactual: (len=%d)\n%s",
		scope, len(errs), formatSlice("  - ", errs))
}

// RequireNoErr fails the test if the error slice is not empty.
func RequireNoErr(t *testing.T, errs errutil.Slice) {
	t.Helper()
	if len(errs) == 0 {
		return
	}
	t.Fatalf("\nexpected no errors\nactual: (len=%d)\n%s",
		len(errs), formatSlice("  - ", errs))
}

func formatSlice(prefix string, errs errutil.Slice) string {
	var sb strings.Builder
	for i, err := range errs {
		fmt.Fprintf(&sb, "%s[i=%d] %s\n", prefix, i, errutil.Format(err))
	}
	return sb.String()
}
