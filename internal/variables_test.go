package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func withBuildVars(t *testing.T, v, s, c string) {
	t.Helper()
	oldV, oldS, oldC := version, stage, gitCommit
	version, stage, gitCommit = v, s, c
	t.Cleanup(func() { version, stage, gitCommit = oldV, oldS, oldC })
}

func TestVersionStringLocal(t *testing.T) {
	withBuildVars(t, "1.0.0", "", "abc123")

	assert.True(t, IsLocal())
	assert.Equal(t, "(local)", VersionString())
	assert.Equal(t, "(undefined)", Stage())
}

func TestVersionStringRelease(t *testing.T) {
	tests := []struct {
		name    string
		version string
		stage   string
		want    string
	}{
		{"main branch", "v1.2.3", "main", "1.2.3 abc123 [" + Arch() + "]"},
		{"other branch", "1.2.3", "Beta", "1.2.3+beta abc123 [" + Arch() + "]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			withBuildVars(t, tt.version, tt.stage, "abc123")
			assert.False(t, IsLocal())
			assert.Equal(t, tt.want, VersionString())
		})
	}
}

func TestModes(t *testing.T) {
	SetDebug(true)
	t.Cleanup(func() { SetDebug(false) })
	assert.True(t, IsDebug())

	SetQuiet(false)
	assert.False(t, IsQuiet())
}
