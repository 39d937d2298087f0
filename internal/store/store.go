// Package store is a read-only view of one stream's commit store.
package store

import (
	"errors"
	"fmt"
	"iter"
	"log/slog"

	"github.com/thiagokokada/altcos-graph/internal/store/backend"
	"github.com/thiagokokada/altcos-graph/internal/stream"
	"github.com/thiagokokada/altcos-graph/internal/version"
)

var (
	ErrRepoOpen        = errors.New("cannot open repository")
	ErrNoSuchRef       = errors.New("no such ref")
	ErrMalformedCommit = errors.New("malformed commit metadata")
	ErrChainCycle      = errors.New("commit chain cycle")
	ErrUnknownMode     = errors.New("invalid repository mode")
)

type Mode string

const (
	ModeBare    Mode = "bare"
	ModeArchive Mode = "archive"
)

func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeBare, ModeArchive:
		return Mode(s), nil
	}
	return "", fmt.Errorf("%w %q, allowed: %s %s", ErrUnknownMode, s, ModeBare, ModeArchive)
}

// Dir returns the repository directory of s for the mode.
func (m Mode) Dir(s stream.Stream) (string, error) {
	switch m {
	case ModeBare:
		return s.OstreeBareDir(), nil
	case ModeArchive:
		return s.OstreeArchiveDir(), nil
	}
	return "", fmt.Errorf("%w %q", ErrUnknownMode, m)
}

type Commit struct {
	Hash    string
	Parent  string // empty for the root commit
	Version version.Version
}

// Repository is bound to one stream and one mode for its lifetime.
type Repository struct {
	stream  stream.Stream
	mode    Mode
	backend backend.Backend
}

// Open opens the repository of s in the given mode. Every failure is reported
// as ErrRepoOpen.
func Open(s stream.Stream, mode Mode, kind backend.Kind) (*Repository, error) {
	dir, err := mode.Dir(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRepoOpen, err)
	}
	b, err := backend.Open(kind, dir)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrRepoOpen, dir, err)
	}
	return NewWithBackend(s, mode, b), nil
}

func NewWithBackend(s stream.Stream, mode Mode, b backend.Backend) *Repository {
	return &Repository{stream: s, mode: mode, backend: b}
}

func (r *Repository) Stream() stream.Stream { return r.stream }
func (r *Repository) Mode() Mode             { return r.mode }
func (r *Repository) Path() string           { return r.backend.RepoPath() }

// ResolveHead returns the commit the stream ref points to now. Two calls may
// disagree if the build pipeline committed in between.
func (r *Repository) ResolveHead() (string, error) {
	ref := r.stream.Ref()
	hash, ok, err := r.backend.ResolveRef(ref)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	if !ok {
		return "", fmt.Errorf("%w: %s in %s", ErrNoSuchRef, ref, r.backend.RepoPath())
	}
	return hash, nil
}

// LoadParent returns the parent of hash; ok is false at the root.
func (r *Repository) LoadParent(hash string) (parent string, ok bool, err error) {
	c, err := r.backend.LoadCommit(hash)
	if err != nil {
		return "", false, fmt.Errorf("load commit %s: %w", hash, err)
	}
	return c.Parent, c.Parent != "", nil
}

// LoadVersion returns the raw version string of hash after checking it parses.
func (r *Repository) LoadVersion(hash string) (string, error) {
	raw, err := r.backend.LoadCommit(hash)
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", hash, err)
	}
	if _, err := version.Parse(raw.Version); err != nil {
		return "", fmt.Errorf("%w: commit %s: %w", ErrMalformedCommit, hash, err)
	}
	return raw.Version, nil
}

func (r *Repository) loadCommit(hash string) (Commit, error) {
	raw, err := r.backend.LoadCommit(hash)
	if err != nil {
		return Commit{}, fmt.Errorf("load commit %s: %w", hash, err)
	}
	v, err := version.Parse(raw.Version)
	if err != nil {
		return Commit{}, fmt.Errorf("%w: commit %s: %w", ErrMalformedCommit, hash, err)
	}
	return Commit{Hash: raw.Hash, Parent: raw.Parent, Version: v}, nil
}

// Walk yields the commits reachable from head, newest first, following first
// parents. Each commit is loaded once; the walk stops at the root or at the
// first error.
func (r *Repository) Walk(head string) iter.Seq2[Commit, error] {
	return func(yield func(Commit, error) bool) {
		seen := make(map[string]struct{})
		for hash := head; hash != ""; {
			if _, dup := seen[hash]; dup {
				yield(Commit{}, fmt.Errorf("%w: %s revisited", ErrChainCycle, hash))
				return
			}
			seen[hash] = struct{}{}
			c, err := r.loadCommit(hash)
			if err != nil {
				yield(Commit{}, err)
				return
			}
			if !yield(c, nil) {
				return
			}
			hash = c.Parent
		}
	}
}

// Chain resolves the head once and returns the whole chain newest first.
func (r *Repository) Chain() ([]Commit, error) {
	head, err := r.ResolveHead()
	if err != nil {
		return nil, err
	}
	var chain []Commit
	for c, err := range r.Walk(head) {
		if err != nil {
			return nil, err
		}
		chain = append(chain, c)
	}
	slog.Debug("commit chain loaded",
		slog.String("ref", r.stream.Ref()),
		slog.String("head", head),
		slog.Int("length", len(chain)),
	)
	return chain, nil
}
