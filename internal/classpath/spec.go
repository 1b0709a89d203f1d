package classpath

import (
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/opencontainers/go-digest"
)

// Ordered list of absolute classpath locations.
//
// A spec is immutable once parsed; the cache keys execution contexts on its
// canonical string form.
type Spec []string

// Parses a classpath written in the platform path-list syntax.
//
// Empty entries are dropped and relative entries are made absolute against
// the daemon's working directory. A classpath without any entry is a
// [ResolutionError].
func Parse(raw string) (Spec, error) {
	var spec Spec
	for _, entry := range filepath.SplitList(raw) {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		abs, err := filepath.Abs(entry)
		if err != nil {
			return nil, &ResolutionError{Classpath: raw, Reason: err.Error()}
		}
		spec = append(spec, abs)
	}

	if len(spec) == 0 {
		return nil, &ResolutionError{Classpath: raw, Reason: "no entries"}
	}

	return spec, nil
}

// Returns the canonical path-list form of the spec.
func (s Spec) String() string {
	return strings.Join(s, string(os.PathListSeparator))
}

// Reports whether both specs list the same locations in the same order.
func (s Spec) Equal(other Spec) bool {
	return slices.Equal(s, other)
}

// Returns a content-addressed identifier for the location list.
func (s Spec) Digest() digest.Digest {
	return digest.FromString(s.String())
}
