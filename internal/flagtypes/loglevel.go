package flagtypes

import (
	"fmt"
	"strings"

	"github.com/iver-wharf/wharf-core/v2/pkg/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var _ pflag.Value = new(LogLevel)

type levelName struct {
	level   logger.Level
	aliases []string
	help    string
}

// First alias is the canonical name.
var levelNames = []levelName{
	{logger.LevelDebug, []string{"debug", "5", "d", "debugging"}, "Includes all logs"},
	{logger.LevelInfo, []string{"info", "4", "i", "information"}, "Includes INFO, WARN, ERROR, and PANIC logs (default)"},
	{logger.LevelWarn, []string{"warn", "3", "w", "warning", "warnings"}, "Includes WARN, ERROR, and PANIC logs"},
	{logger.LevelError, []string{"error", "2", "e", "errors"}, "Includes ERROR and PANIC logs"},
	{logger.LevelPanic, []string{"panic", "1", "p", "panics"}, "Silent, except for PANIC logs"},
}

// LogLevel is a pflag.Value for the logging level.
type LogLevel logger.Level

// Level returns the logger.Level value.
func (l LogLevel) Level() logger.Level {
	return logger.Level(l)
}

// String implements the pflag.Value and fmt.Stringer interfaces.
func (l *LogLevel) String() string {
	for _, n := range levelNames {
		if n.level == l.Level() {
			return n.aliases[0]
		}
	}
	return l.Level().String()
}

// Set implements the pflag.Value interface.
func (l *LogLevel) Set(val string) error {
	lvl, err := ParseLevel(val)
	if err != nil {
		return err
	}
	*l = LogLevel(lvl)
	return nil
}

// Type implements the pflag.Value interface.
func (l *LogLevel) Type() string {
	return "loglevel"
}

// ParseLevel parses a logging level by name, abbreviation or number,
// ignoring case.
func ParseLevel(s string) (logger.Level, error) {
	s = strings.ToLower(s)
	for _, n := range levelNames {
		for _, alias := range n.aliases {
			if alias == s {
				return n.level, nil
			}
		}
	}
	var sb strings.Builder
	sb.WriteString("invalid logging level, possible values:")
	for _, n := range levelNames {
		fmt.Fprintf(&sb, "\n\t%s", strings.Join(n.aliases, "  "))
	}
	return logger.LevelDebug, fmt.Errorf("%q: %s", s, sb.String())
}

// CompleteLogLevel is a cobra completion function for LogLevel flags.
func CompleteLogLevel(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	completions := make([]string, len(levelNames))
	for i, n := range levelNames {
		completions[i] = n.aliases[0] + "\t" + n.help
	}
	return completions, cobra.ShellCompDirectiveNoFileComp
}
