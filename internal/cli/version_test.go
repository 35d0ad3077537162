package cli

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etenda/etenda/internal/version"
)

type fakeChecker struct {
	rel *version.Release
	err error
}

func (f fakeChecker) Latest(context.Context) (*version.Release, error) { return f.rel, f.err }

func withBuild(t *testing.T, b version.Build, checker releaseChecker) {
	t.Helper()
	origBuild, origChecker := buildInfo, newReleaseChecker
	t.Cleanup(func() {
		SetBuildInfo(origBuild)
		newReleaseChecker = origChecker
	})
	SetBuildInfo(b)
	newReleaseChecker = func(version.Build) releaseChecker { return checker }
}

func TestVersion(t *testing.T) {
	e := newCLIEnv(t)
	release := &version.Release{TagName: "v1.3.0", URL: "https://github.com/etenda/etenda/releases/tag/v1.3.0"}

	t.Run("plain", func(t *testing.T) {
		withBuild(t, version.Build{Version: "v1.2.0", Commit: "abc1234", Date: "2026-09-01"}, nil)

		stdout, err := e.run("-o", "text", "version")
		require.NoError(t, err)
		assert.Equal(t, "etenda v1.2.0 (commit: abc1234, built: 2026-09-01)\n", stdout)
	})

	t.Run("newer release", func(t *testing.T) {
		withBuild(t, version.Build{Version: "v1.2.0"}, fakeChecker{rel: release})

		stdout, err := e.run("-o", "text", "version", "--check")
		require.NoError(t, err)
		assert.Contains(t, stdout, "A newer release is available: v1.3.0")
		assert.Contains(t, stdout, release.URL)

		var v versionView
		e.runJSON(&v, "version", "--check")
		assert.Equal(t, "v1.2.0", v.Version)
		assert.Equal(t, "v1.3.0", v.Latest)
		assert.True(t, v.UpdateAvailable)
	})

	t.Run("up to date", func(t *testing.T) {
		withBuild(t, version.Build{Version: "v1.3.0"}, fakeChecker{rel: release})

		stdout, err := e.run("-o", "text", "version", "--check")
		require.NoError(t, err)
		assert.Contains(t, stdout, "You are running the latest release.")
	})

	t.Run("development build", func(t *testing.T) {
		withBuild(t, version.Build{}, fakeChecker{rel: release})

		stdout, err := e.run("-o", "text", "version", "--check")
		require.NoError(t, err)
		assert.Contains(t, stdout, "not compared")
	})

	t.Run("lookup fails", func(t *testing.T) {
		withBuild(t, version.Build{Version: "v1.2.0"}, fakeChecker{err: version.ErrReleaseLookup})

		_, err := e.run("version", "--check")
		require.Error(t, err)
		assert.True(t, errors.Is(err, version.ErrReleaseLookup))
	})
}

func TestRootVersionFlag(t *testing.T) {
	e := newCLIEnv(t)
	withBuild(t, version.Build{Version: "v0.9.0", Commit: "abc1234", Date: "2026-08-01"}, nil)

	stdout, err := e.run("--version")
	require.NoError(t, err)
	assert.Equal(t, "etenda v0.9.0 (commit: abc1234, built: 2026-08-01)\n", stdout)
}
