// Package ci reads the build metadata CI providers export to jobs.
package ci

import (
	"os"
	"strings"

	"github.com/coreyt/sine/internal/git"
)

// Kind identifies a CI provider.
type Kind int

const (
	Unknown Kind = iota
	GitHub
	GitLab
	Bitbucket
)

func (k Kind) String() string {
	switch k {
	case GitHub:
		return "github"
	case GitLab:
		return "gitlab"
	case Bitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// Environment is the checkout a CI job runs against. Branch is empty for
// tag and merge request pipelines.
type Environment struct {
	Kind          Kind
	CommitHash    string
	Branch        string
	RepositoryURL string
}

// Detect infers the provider from well-known variables and reads its metadata.
func Detect(lookup LookupFunc) Environment {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch {
	case lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "":
		// https://docs.github.com/en/actions/reference/workflows-and-actions/variables
		env := Environment{Kind: GitHub, CommitHash: lookup("GITHUB_SHA")}
		if strings.HasPrefix(lookup("GITHUB_REF"), "refs/heads/") {
			env.Branch = lookup("GITHUB_REF_NAME")
		}
		if server, repo := lookup("GITHUB_SERVER_URL"), lookup("GITHUB_REPOSITORY"); server != "" && repo != "" {
			env.RepositoryURL = strings.TrimSuffix(server, "/") + "/" + repo
		}
		return env

	case strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "":
		// https://docs.gitlab.com/ci/variables/predefined_variables/
		env := Environment{
			Kind:          GitLab,
			CommitHash:    lookup("CI_COMMIT_SHA"),
			RepositoryURL: lookup("CI_PROJECT_URL"),
		}
		if lookup("CI_COMMIT_TAG") == "" && lookup("CI_MERGE_REQUEST_REF_PATH") == "" {
			env.Branch = lookup("CI_COMMIT_REF_NAME")
		}
		return env

	case lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "":
		// https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/
		env := Environment{
			Kind:          Bitbucket,
			CommitHash:    lookup("BITBUCKET_COMMIT"),
			RepositoryURL: lookup("BITBUCKET_GIT_HTTP_ORIGIN"),
		}
		if lookup("BITBUCKET_TAG") == "" {
			env.Branch = lookup("BITBUCKET_BRANCH")
		}
		return env
	}

	return Environment{Kind: Unknown}
}

// Fill copies CI values into the fields of md that the checkout could not
// provide, as happens with detached or shallow clones. It returns nil when
// neither source knows anything.
func (e Environment) Fill(md *git.RepositoryMetadata) *git.RepositoryMetadata {
	if md == nil {
		md = &git.RepositoryMetadata{}
	}
	setIfNil(&md.CommitHash, e.CommitHash)
	setIfNil(&md.BranchName, e.Branch)
	if e.RepositoryURL != "" {
		setIfNil(&md.RepositoryURL, git.NormalizeRemoteURL(e.RepositoryURL))
	}

	if md.CommitHash == nil && md.BranchName == nil && md.RepositoryURL == nil && md.RootFolder == "" {
		return nil
	}
	return md
}

func setIfNil(field **string, value string) {
	if *field == nil && value != "" {
		v := value
		*field = &v
	}
}
