package reposync

import (
	"fmt"
	"strings"
)

const (
	defaultBranchNameConstant         = "main"
	githubURLTemplateConstant         = "https://github.com/%s.git"
	repositorySchemeSeparatorConstant = ":"
	repositoryPathSeparatorConstant   = "/"
	gitSuffixConstant                 = ".git"
	tagCheckoutPrefixConstant         = "tags/"
)

// RepoRef identifies the desired state of one external checkout.
type RepoRef struct {
	Repository string `mapstructure:"repo" yaml:"repo" json:"repo"`
	Directory  string `mapstructure:"dir" yaml:"dir,omitempty" json:"dir,omitempty"`
	Branch     string `mapstructure:"branch" yaml:"branch,omitempty" json:"branch,omitempty"`
	Tag        string `mapstructure:"tag" yaml:"tag,omitempty" json:"tag,omitempty"`
	Commit     string `mapstructure:"commit" yaml:"commit,omitempty" json:"commit,omitempty"`
	Shallow    *bool  `mapstructure:"shallow" yaml:"shallow,omitempty" json:"shallow,omitempty"`
}

// RepositoryURL expands owner/name shorthand into a GitHub HTTPS URL.
func (ref RepoRef) RepositoryURL() string {
	trimmed := strings.TrimSpace(ref.Repository)
	if len(trimmed) == 0 || strings.Contains(trimmed, repositorySchemeSeparatorConstant) {
		return trimmed
	}
	return fmt.Sprintf(githubURLTemplateConstant, trimmed)
}

// DirectoryName returns the checkout directory name, defaulting to the final segment of the repository value.
func (ref RepoRef) DirectoryName() string {
	trimmedDirectory := strings.TrimSpace(ref.Directory)
	if len(trimmedDirectory) > 0 {
		return trimmedDirectory
	}
	trimmedRepository := strings.TrimSuffix(strings.TrimSpace(ref.Repository), repositoryPathSeparatorConstant)
	lastSeparator := strings.LastIndex(trimmedRepository, repositoryPathSeparatorConstant)
	name := trimmedRepository[lastSeparator+1:]
	if strings.Contains(trimmedRepository, repositorySchemeSeparatorConstant) {
		name = strings.TrimSuffix(name, gitSuffixConstant)
	}
	return name
}

// BranchName returns the configured branch or main.
func (ref RepoRef) BranchName() string {
	trimmed := strings.TrimSpace(ref.Branch)
	if len(trimmed) == 0 {
		return defaultBranchNameConstant
	}
	return trimmed
}

// IsShallow reports whether the checkout is shallow. Absent means shallow.
func (ref RepoRef) IsShallow() bool {
	if ref.Shallow == nil {
		return true
	}
	return *ref.Shallow
}

// TagName returns the trimmed tag.
func (ref RepoRef) TagName() string {
	return strings.TrimSpace(ref.Tag)
}

// CommitID returns the trimmed commit.
func (ref RepoRef) CommitID() string {
	return strings.TrimSpace(ref.Commit)
}

// CloneReference is the ref passed to git clone --branch.
func (ref RepoRef) CloneReference() string {
	if tag := ref.TagName(); len(tag) > 0 {
		return tag
	}
	return ref.BranchName()
}

// FetchReference is the ref fetched from origin and whether it names a tag.
func (ref RepoRef) FetchReference() (string, bool) {
	if tag := ref.TagName(); len(tag) > 0 {
		return tag, true
	}
	if commit := ref.CommitID(); len(commit) > 0 {
		return commit, false
	}
	return ref.BranchName(), false
}

// ShallowCheckoutTarget is the detached target of a shallow sync.
func (ref RepoRef) ShallowCheckoutTarget() string {
	if tag := ref.TagName(); len(tag) > 0 {
		return tagCheckoutPrefixConstant + tag
	}
	if commit := ref.CommitID(); len(commit) > 0 {
		return commit
	}
	return ref.BranchName()
}

// ResetTarget is the ref a full sync resets to, empty when none is pinned.
func (ref RepoRef) ResetTarget() string {
	if tag := ref.TagName(); len(tag) > 0 {
		return tag
	}
	return ref.CommitID()
}
