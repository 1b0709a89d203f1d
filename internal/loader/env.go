package loader

import (
	"sort"
	"strings"
)

// Environment variable holding the build directory inside a context.
const BuildDirEnv = "TACKD_BUILD_DIR"

// Environment variable holding the classpath inside a context.
const ClasspathEnv = "CLASSPATH"

// Merges "key=value" layers, later layers overriding earlier ones.
//
// Entries without "=" are dropped. The result is sorted so that contexts
// built from the same inputs see identical environments.
func mergeEnv(base []string, overrides ...[]string) []string {
	merged := make(map[string]string, len(base))
	for _, layer := range append([][]string{base}, overrides...) {
		for _, entry := range layer {
			if k, v, ok := strings.Cut(entry, "="); ok && k != "" {
				merged[k] = v
			}
		}
	}

	result := make([]string, 0, len(merged))
	for k, v := range merged {
		result = append(result, k+"="+v)
	}
	sort.Strings(result)
	return result
}
