// Package storetest builds git-backed commit stores for tests.
package storetest

import (
	"os"
	"testing"
	"time"

	gitlib "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// InitBare creates an empty bare git repository at dir.
func InitBare(t testing.TB, dir string) *gitlib.Repository {
	t.Helper()
	repo, err := gitlib.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("init repository: %v", err)
	}
	return repo
}

// OpenOrInit opens the bare repository at dir, creating it and its parent
// directories on first use.
func OpenOrInit(t testing.TB, dir string) *gitlib.Repository {
	t.Helper()
	if _, err := os.Stat(dir); err == nil {
		repo, err := gitlib.PlainOpen(dir)
		if err != nil {
			t.Fatalf("open repository: %v", err)
		}
		return repo
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create %s: %v", dir, err)
	}
	return InitBare(t, dir)
}

// CommitChain appends one commit per version to ref, each a child of the
// previous one (or of the current ref head if it exists). It returns the new
// hashes oldest first.
func CommitChain(t testing.TB, repo *gitlib.Repository, ref string, versions ...string) []string {
	t.Helper()
	treeHash := emptyTree(t, repo)
	refName := plumbing.NewBranchReferenceName(ref)

	var parent plumbing.Hash
	if head, err := repo.Reference(refName, true); err == nil {
		parent = head.Hash()
	}

	when := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	hashes := make([]string, 0, len(versions))
	for i, v := range versions {
		sig := object.Signature{Name: "builder", Email: "builder@example.com", When: when.Add(time.Duration(i) * time.Hour)}
		commit := &object.Commit{
			Author:    sig,
			Committer: sig,
			Message:   "Build " + v + "\n\nVersion: " + v + "\n",
			TreeHash:  treeHash,
		}
		if !parent.IsZero() {
			commit.ParentHashes = []plumbing.Hash{parent}
		}
		obj := repo.Storer.NewEncodedObject()
		if err := commit.Encode(obj); err != nil {
			t.Fatalf("encode commit: %v", err)
		}
		hash, err := repo.Storer.SetEncodedObject(obj)
		if err != nil {
			t.Fatalf("store commit: %v", err)
		}
		hashes = append(hashes, hash.String())
		parent = hash
	}
	if !parent.IsZero() {
		if err := repo.Storer.SetReference(plumbing.NewHashReference(refName, parent)); err != nil {
			t.Fatalf("set ref %s: %v", ref, err)
		}
	}
	return hashes
}

func emptyTree(t testing.TB, repo *gitlib.Repository) plumbing.Hash {
	t.Helper()
	obj := repo.Storer.NewEncodedObject()
	if err := (&object.Tree{}).Encode(obj); err != nil {
		t.Fatalf("encode tree: %v", err)
	}
	hash, err := repo.Storer.SetEncodedObject(obj)
	if err != nil {
		t.Fatalf("store tree: %v", err)
	}
	return hash
}
