// Package gitrepo reads the local checkout the triage session runs in.
package gitrepo

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/ericfisherdev/issuetriage/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.RepoInspector = (*Inspector)(nil)

// Inspector implements RepoInspector with go-git, so no git binary is needed.
type Inspector struct {
	path string
}

// New returns an Inspector for the repository containing path.
func New(path string) *Inspector {
	return &Inspector{path: path}
}

func (i *Inspector) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(i.path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository at %s: %w", i.path, err)
	}
	return repo, nil
}

// HeadSHA returns the commit HEAD points at.
func (i *Inspector) HeadSHA(_ context.Context) (string, error) {
	repo, err := i.open()
	if err != nil {
		return "", err
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// DetectRepo returns "owner/name" parsed from the origin remote.
func (i *Inspector) DetectRepo(_ context.Context) (string, error) {
	repo, err := i.open()
	if err != nil {
		return "", err
	}
	remote, err := repo.Remote("origin")
	if err != nil {
		return "", fmt.Errorf("read origin remote: %w", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", fmt.Errorf("origin remote has no URL")
	}
	return ParseGitHubRemote(urls[0])
}

var githubRemote = regexp.MustCompile(`github\.com[:/]([^/]+)/([^/]+?)(?:\.git)?/?$`)

// ParseGitHubRemote extracts "owner/name" from an SSH or HTTPS GitHub URL.
func ParseGitHubRemote(url string) (string, error) {
	m := githubRemote.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", fmt.Errorf("cannot parse repo from remote URL %q", url)
	}
	return m[1] + "/" + m[2], nil
}
