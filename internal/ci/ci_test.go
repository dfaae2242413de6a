package ci

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreyt/sine/internal/git"
)

func lookupFrom(env map[string]string) LookupFunc {
	return func(key string) string { return env[key] }
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "github", GitHub.String())
	assert.Equal(t, "gitlab", GitLab.String())
	assert.Equal(t, "bitbucket", Bitbucket.String())
	assert.Equal(t, "unknown", Unknown.String())
}

func TestDetect(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		want Environment
	}{
		{
			name: "GitHub branch",
			env: map[string]string{
				"GITHUB_REPOSITORY": "acme/app",
				"GITHUB_SERVER_URL": "https://github.com",
				"GITHUB_SHA":        "abc123",
				"GITHUB_REF":        "refs/heads/main",
				"GITHUB_REF_NAME":   "main",
			},
			want: Environment{Kind: GitHub, CommitHash: "abc123", Branch: "main", RepositoryURL: "https://github.com/acme/app"},
		},
		{
			name: "GitHub pull request",
			env: map[string]string{
				"GITHUB_REPOSITORY": "acme/app",
				"GITHUB_SHA":        "abc123",
				"GITHUB_REF":        "refs/pull/7/merge",
				"GITHUB_REF_NAME":   "7/merge",
			},
			want: Environment{Kind: GitHub, CommitHash: "abc123"},
		},
		{
			name: "GitLab branch",
			env: map[string]string{
				"GITLAB_CI":          "true",
				"CI_COMMIT_SHA":      "def456",
				"CI_COMMIT_REF_NAME": "develop",
				"CI_PROJECT_URL":     "https://gitlab.com/acme/app",
			},
			want: Environment{Kind: GitLab, CommitHash: "def456", Branch: "develop", RepositoryURL: "https://gitlab.com/acme/app"},
		},
		{
			name: "GitLab tag",
			env: map[string]string{
				"CI_PROJECT_PATH":    "acme/app",
				"CI_COMMIT_SHA":      "def456",
				"CI_COMMIT_TAG":      "v1.0.0",
				"CI_COMMIT_REF_NAME": "v1.0.0",
			},
			want: Environment{Kind: GitLab, CommitHash: "def456"},
		},
		{
			name: "Bitbucket branch",
			env: map[string]string{
				"BITBUCKET_WORKSPACE":       "acme",
				"BITBUCKET_COMMIT":          "0a1b2c",
				"BITBUCKET_BRANCH":          "feature/x",
				"BITBUCKET_GIT_HTTP_ORIGIN": "https://bitbucket.org/acme/app",
			},
			want: Environment{Kind: Bitbucket, CommitHash: "0a1b2c", Branch: "feature/x", RepositoryURL: "https://bitbucket.org/acme/app"},
		},
		{
			name: "Not in CI",
			env:  map[string]string{"HOME": "/root"},
			want: Environment{Kind: Unknown},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Detect(lookupFrom(tc.env)))
		})
	}
}

func TestFill(t *testing.T) {
	env := Environment{Kind: GitHub, CommitHash: "abc123", Branch: "main", RepositoryURL: "https://github.com/acme/app.git"}

	md := env.Fill(nil)
	require.NotNil(t, md)
	assert.Equal(t, "abc123", *md.CommitHash)
	assert.Equal(t, "main", *md.BranchName)
	assert.Equal(t, "https://github.com/acme/app", *md.RepositoryURL)

	// Values read from the checkout win.
	commit := "fromgit"
	md = env.Fill(&git.RepositoryMetadata{CommitHash: &commit, RootFolder: "/src"})
	assert.Equal(t, "fromgit", *md.CommitHash)
	assert.Equal(t, "main", *md.BranchName)
	assert.Equal(t, "/src", md.RootFolder)

	assert.Nil(t, Environment{}.Fill(nil))
}
