package version

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGet(t *testing.T) {
	info := Get()
	assert.Equal(t, Version, info.Version)
	assert.Equal(t, Commit, info.Commit)
	assert.Equal(t, BuildTime, info.BuildTime)
	assert.True(t, strings.HasPrefix(info.GoVersion, "go"))
}
