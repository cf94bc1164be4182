package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseURL(t *testing.T) {
	u, err := ParseURL("/var/backups")
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, "/var/backups", u.Path)

	u, err = ParseURL("s3://bucket/path")
	require.NoError(t, err)
	assert.Equal(t, "bucket", u.Hostname())
	assert.Equal(t, "/path", u.Path)
}

func TestForURL(t *testing.T) {
	for _, raw := range []string{"/tmp", "file:///tmp", "s3://b/p", "smb://host/share"} {
		u, err := ParseURL(raw)
		require.NoError(t, err)
		_, err = ForURL(u)
		assert.NoError(t, err, raw)
	}
	u, err := ParseURL("ftp://host/x")
	require.NoError(t, err)
	_, err = ForURL(u)
	assert.Error(t, err)
}

func TestParseURLRelative(t *testing.T) {
	u, err := ParseURL("./backups")
	require.NoError(t, err)
	assert.Equal(t, "file", u.Scheme)
	assert.Equal(t, "./backups", u.Path)
}
