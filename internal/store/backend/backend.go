package backend

import (
	"errors"
	"fmt"
)

var (
	// ErrNotRepository reports a path that exists but does not hold a commit store.
	ErrNotRepository = errors.New("not a repository")
	ErrUnknownKind   = errors.New("unknown store backend")
)

type Kind string

const (
	KindOSTree Kind = "ostree"
	KindGit    Kind = "git"
)

func (k Kind) String() string { return string(k) }

func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindOSTree, KindGit:
		return Kind(s), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownKind, s)
}

type Commit struct {
	Hash    string
	Parent  string // empty for the root commit
	Version string // raw "version" metadata, may be empty
}

// Backend abstracts read access to a content-addressed commit store.
//
// The production implementation shells out to the ostree executable; the git
// implementation stores the same chain in a git repository and is used where
// ostree is not available.
type Backend interface {
	RepoPath() string
	// ResolveRef returns the commit a ref points to. ok is false when the ref
	// was never committed.
	ResolveRef(ref string) (hash string, ok bool, err error)
	LoadCommit(hash string) (*Commit, error)
}

// Open opens the store at path with the given backend.
func Open(kind Kind, path string) (Backend, error) {
	switch kind {
	case KindOSTree:
		return OpenOSTree(path)
	case KindGit:
		return OpenGit(path)
	}
	return nil, fmt.Errorf("%w %q", ErrUnknownKind, kind)
}
