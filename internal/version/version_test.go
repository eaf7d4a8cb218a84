package version

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShort(t *testing.T) {
	origVersion, origCommit := Version, Commit
	t.Cleanup(func() { Version, Commit = origVersion, origCommit })

	Version, Commit = "1.2.3", "unknown"
	assert.Equal(t, "tvee 1.2.3", Short())

	Commit = "0123456789abcdef"
	assert.Equal(t, "tvee 1.2.3 (01234567)", Short())
	assert.Contains(t, String(), "commit: 01234567")
}

func TestUserAgent(t *testing.T) {
	origVersion := Version
	t.Cleanup(func() { Version = origVersion })

	Version = "0.4.0"
	assert.Equal(t, "tvee/0.4.0", UserAgent())
}

func TestGetInfo(t *testing.T) {
	info := GetInfo()
	assert.NotEmpty(t, info.GoVersion)
	assert.Contains(t, info.Platform, "/")
}
