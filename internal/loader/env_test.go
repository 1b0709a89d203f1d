package loader

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMergeEnv(t *testing.T) {
	tests := []struct {
		name      string
		base      []string
		overrides [][]string
		want      []string
	}{
		{
			name:      "override existing key",
			base:      []string{"A=1", "B=2"},
			overrides: [][]string{{"A=override"}},
			want:      []string{"A=override", "B=2"},
		},
		{
			name:      "later layer wins",
			base:      []string{"A=1"},
			overrides: [][]string{{"A=2"}, {"A=3"}},
			want:      []string{"A=3"},
		},
		{
			name: "both empty",
			want: []string{},
		},
		{
			name: "value with equals sign",
			base: []string{"CMD=foo=bar"},
			want: []string{"CMD=foo=bar"},
		},
		{
			name:      "malformed entries skipped",
			base:      []string{"NOEQUALS", "=nokey", "A=1"},
			overrides: [][]string{{"ALSO_BAD", "B=2"}},
			want:      []string{"A=1", "B=2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, mergeEnv(tt.base, tt.overrides...))
		})
	}
}
