package errutil

import "strings"

// Slice is a slice of errors.
type Slice []error

// Add appends another error to this slice of errors. Nil errors are ignored.
func (s *Slice) Add(errs ...error) {
	for _, err := range errs {
		if err == nil {
			continue
		}
		*s = append(*s, err)
	}
}

// Strings returns the error messages, prefixed with their scope if any.
func (s Slice) Strings() []string {
	if len(s) == 0 {
		return nil
	}
	strs := make([]string, len(s))
	for i, err := range s {
		strs[i] = Format(err)
	}
	return strs
}

// Format returns the error message prefixed with the error's scope, if it
// has one.
func Format(err error) string {
	scope := AsScope(err)
	if scope == "" {
		return err.Error()
	}
	var sb strings.Builder
	sb.WriteString(scope)
	sb.WriteString(": ")
	sb.WriteString(err.Error())
	return sb.String()
}
