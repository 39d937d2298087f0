package backend

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// VersionTrailer is the commit message trailer carrying the version metadata
// in git-backed stores.
const VersionTrailer = "Version:"

type gitRepo struct {
	*gitlib.Repository
	path string
}

// OpenGit opens a plain or bare git repository. Stream refs are branches:
// "altcos/x86_64/p10" lives at refs/heads/altcos/x86_64/p10.
func OpenGit(repoPath string) (Backend, error) {
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	repo, err := gitlib.PlainOpen(abs)
	if err != nil {
		if errors.Is(err, gitlib.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("open repository: %s: %w", abs, ErrNotRepository)
		}
		return nil, fmt.Errorf("open repository: %w", err)
	}
	return &gitRepo{Repository: repo, path: abs}, nil
}

func (g *gitRepo) RepoPath() string {
	if g == nil {
		return ""
	}
	return g.path
}

func (g *gitRepo) ResolveRef(ref string) (string, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false, fmt.Errorf("ref not specified")
	}
	r, err := g.Reference(plumbing.NewBranchReferenceName(ref), true)
	if err != nil {
		if errors.Is(err, plumbing.ErrReferenceNotFound) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("resolve %s: %w", ref, err)
	}
	return r.Hash().String(), true, nil
}

func (g *gitRepo) LoadCommit(hash string) (*Commit, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("commit not specified")
	}
	c, err := g.CommitObject(plumbing.NewHash(hash))
	if err != nil {
		return nil, fmt.Errorf("load commit %s: %w", hash, err)
	}
	return commitFromObject(c), nil
}

func commitFromObject(c *object.Commit) *Commit {
	commit := &Commit{
		Hash:    c.Hash.String(),
		Version: versionTrailer(c.Message),
	}
	// Stream history is linear; only the first parent is followed.
	if len(c.ParentHashes) > 0 {
		commit.Parent = c.ParentHashes[0].String()
	}
	return commit
}

func versionTrailer(message string) string {
	var version string
	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		if value, ok := strings.CutPrefix(line, VersionTrailer); ok {
			version = strings.TrimSpace(value)
		}
	}
	return version
}
