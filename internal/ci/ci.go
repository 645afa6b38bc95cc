// Package ci provides helpers for discovering CI metadata.
package ci

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// CIKind represents the type of CI.
type CIKind int

const (
	// CIUnknown indicates the CI provider could not be identified.
	CIUnknown CIKind = iota
	// CIGitHub identifies GitHub CI environments.
	CIGitHub
	// CIGitLab identifies GitLab CI environments.
	CIGitLab
	// CIBitbucket identifies Bitbucket CI environments.
	CIBitbucket
)

// LookupFunc fetches environment variables and defaults to os.Getenv.
type LookupFunc func(string) string

// CIEnvironment captures the CI metadata catalog updates are attributed with.
type CIEnvironment struct {
	Kind               CIKind // Kind identifies the CI provider.
	CI                 bool   // CI reports whether the execution runs inside a CI environment.
	ActorName          string // ActorName is the user that triggered the job.
	ActorEmail         string // ActorEmail is the e-mail of the triggering user when the provider exposes it.
	CommitHash         string // CommitHash is the tip commit that triggered the job.
	ReferenceName      string // ReferenceName is the short reference or branch name.
	RepositoryFullName string // RepositoryFullName is the namespace-qualified repository name.
}

// String returns the human-readable string representation of a CIKind.
func (c CIKind) String() string {
	switch c {
	case CIGitHub:
		return "github"
	case CIGitLab:
		return "gitlab"
	case CIBitbucket:
		return "bitbucket"
	default:
		return "unknown"
	}
}

// DetectCIKind attempts to infer the CI provider from well-known environment variables.
func DetectCIKind() CIKind {
	return detectCIKindWithLookup(os.Getenv)
}

func detectCIKindWithLookup(lookup LookupFunc) CIKind {
	if lookup == nil {
		lookup = os.Getenv
	}

	if lookup("GITHUB_REPOSITORY") != "" || lookup("GITHUB_SHA") != "" {
		return CIGitHub
	}
	if strings.EqualFold(lookup("GITLAB_CI"), "true") || lookup("CI_PROJECT_PATH") != "" {
		return CIGitLab
	}
	if lookup("BITBUCKET_WORKSPACE") != "" || lookup("BITBUCKET_REPO_SLUG") != "" {
		return CIBitbucket
	}

	return CIUnknown
}

// CurrentEnvironment detects the CI provider of the running process and reads its variables.
func CurrentEnvironment() (CIEnvironment, error) {
	return currentEnvironment(os.Getenv)
}

func currentEnvironment(lookup LookupFunc) (CIEnvironment, error) {
	return getCIDefaultEnvVars(detectCIKindWithLookup(lookup), lookup)
}

// getCIDefaultEnvVars resolves CI environment variables with the supplied lookup function.
func getCIDefaultEnvVars(kind CIKind, lookup LookupFunc) (CIEnvironment, error) {
	if lookup == nil {
		lookup = os.Getenv
	}

	switch kind {
	case CIGitHub:
		return extractGitHubVariables(lookup), nil
	case CIGitLab:
		return extractGitLabVariables(lookup), nil
	case CIBitbucket:
		return extractBitbucketVariables(lookup), nil
	default:
		return CIEnvironment{}, fmt.Errorf("unsupported ci kind: %s", kind)
	}
}

// Author formats the triggering user as a catalog author, "ci-<kind>" when the provider hides it.
func (e CIEnvironment) Author() string {
	name := strings.TrimSpace(e.ActorName)
	email := strings.TrimSpace(e.ActorEmail)
	switch {
	case name != "" && email != "":
		return fmt.Sprintf("%s <%s>", name, email)
	case name != "":
		return name
	case e.Kind != CIUnknown:
		return "ci-" + e.Kind.String()
	default:
		return ""
	}
}

// extractGitHubVariables builds the CIEnvironment from GitHub-specific variables.
// See https://docs.github.com/en/actions/reference/workflows-and-actions/variables.
func extractGitHubVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	return CIEnvironment{
		Kind:               CIGitHub,
		CI:                 ci,
		ActorName:          lookup("GITHUB_ACTOR"),
		CommitHash:         lookup("GITHUB_SHA"),
		ReferenceName:      lookup("GITHUB_REF_NAME"),
		RepositoryFullName: lookup("GITHUB_REPOSITORY"),
	}
}

// extractGitLabVariables builds the CIEnvironment from GitLab-specific variables.
// See https://docs.gitlab.com/ci/variables/predefined_variables/.
func extractGitLabVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	refName := lookup("CI_COMMIT_TAG")
	if refName == "" {
		refName = lookup("CI_MERGE_REQUEST_SOURCE_BRANCH_NAME")
	}
	if refName == "" {
		refName = lookup("CI_COMMIT_REF_NAME")
	}

	return CIEnvironment{
		Kind:               CIGitLab,
		CI:                 ci,
		ActorName:          lookup("GITLAB_USER_NAME"),
		ActorEmail:         lookup("GITLAB_USER_EMAIL"),
		CommitHash:         lookup("CI_COMMIT_SHA"),
		ReferenceName:      refName,
		RepositoryFullName: lookup("CI_PROJECT_PATH"),
	}
}

// extractBitbucketVariables builds the CIEnvironment from Bitbucket-specific variables.
// Bitbucket exposes only the triggerer UUID, so the actor stays empty.
// See https://support.atlassian.com/bitbucket-cloud/docs/variables-and-secrets/.
func extractBitbucketVariables(lookup LookupFunc) CIEnvironment {
	ci, _ := strconv.ParseBool(lookup("CI"))

	refName := lookup("BITBUCKET_TAG")
	if refName == "" {
		refName = lookup("BITBUCKET_BRANCH")
	}

	return CIEnvironment{
		Kind:               CIBitbucket,
		CI:                 ci,
		CommitHash:         lookup("BITBUCKET_COMMIT"),
		ReferenceName:      refName,
		RepositoryFullName: lookup("BITBUCKET_REPO_FULL_NAME"),
	}
}
