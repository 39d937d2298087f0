package store

import (
	"errors"
	"fmt"

	"github.com/thiagokokada/altcos-graph/internal/store/backend"
)

type fakeBackend struct {
	repoPath string
	refs     map[string]string
	commits  map[string]backend.Commit

	resolveErr error
	loads      map[string]int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		repoPath: "repo",
		refs:     map[string]string{},
		commits:  map[string]backend.Commit{},
		loads:    map[string]int{},
	}
}

// chain appends one commit per version to ref, oldest first, and returns the
// new hashes in the same order.
func (f *fakeBackend) chain(ref string, versions ...string) []string {
	hashes := make([]string, 0, len(versions))
	parent := f.refs[ref]
	for _, v := range versions {
		hash := fmt.Sprintf("%064x", len(f.commits)+1)
		f.commits[hash] = backend.Commit{Hash: hash, Parent: parent, Version: v}
		hashes = append(hashes, hash)
		parent = hash
	}
	if parent != "" {
		f.refs[ref] = parent
	}
	return hashes
}

func (f *fakeBackend) RepoPath() string { return f.repoPath }

func (f *fakeBackend) ResolveRef(ref string) (string, bool, error) {
	if f.resolveErr != nil {
		return "", false, f.resolveErr
	}
	hash, ok := f.refs[ref]
	return hash, ok, nil
}

func (f *fakeBackend) LoadCommit(hash string) (*backend.Commit, error) {
	f.loads[hash]++
	c, ok := f.commits[hash]
	if !ok {
		return nil, errors.New("object not found")
	}
	return &c, nil
}
