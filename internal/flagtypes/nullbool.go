package flagtypes

import (
	"strconv"

	"github.com/spf13/pflag"
	"gopkg.in/guregu/null.v4"
)

var _ pflag.Value = new(NullBool)

// NullBool is a pflag.Value for a boolean that remembers if it was set or not.
// Register it with NoOptDefVal set to "true" to allow "--flag" as shorthand
// for "--flag=true".
type NullBool struct {
	null.Bool
}

// String implements the pflag.Value and fmt.Stringer interfaces.
func (b *NullBool) String() string {
	if !b.Valid {
		return "unset"
	}
	return strconv.FormatBool(b.Bool.Bool)
}

// Set implements the pflag.Value interface.
func (b *NullBool) Set(val string) error {
	v, err := strconv.ParseBool(val)
	if err != nil {
		return err
	}
	b.Bool = null.BoolFrom(v)
	return nil
}

// Type implements the pflag.Value interface.
func (b *NullBool) Type() string {
	return "bool"
}
