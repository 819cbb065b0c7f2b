package pathutil

import (
	"os"
	"path/filepath"
	"strings"
)

// ShorthandHome replaces the home directory prefix of a path with "~", for
// printing paths in logs.
//
//   Input:  "/home/jane/wharf-allure-results"
//   Output: "~/wharf-allure-results"
func ShorthandHome(path string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return path
	}
	return shorthandHome(path, home)
}

func shorthandHome(path, home string) string {
	home = filepath.Clean(home)
	if path == home {
		return "~"
	}
	rest := strings.TrimPrefix(path, home+string(filepath.Separator))
	if rest == path {
		return path
	}
	return "~" + string(filepath.Separator) + rest
}
