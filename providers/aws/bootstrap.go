package aws

import (
	"fmt"
	"os"
	"strings"
)

// renderBootstrap reads the bootstrap template and substitutes ${key}
// placeholders from vars. The blob is otherwise opaque: shell syntax,
// unknown placeholders, and everything else pass through byte-for-byte.
func renderBootstrap(path string, vars map[string]string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read bootstrap template %s: %w", path, err)
	}

	pairs := make([]string, 0, len(vars)*2)
	for k, v := range vars {
		pairs = append(pairs, "${"+k+"}", v)
	}
	return strings.NewReplacer(pairs...).Replace(string(raw)), nil
}
