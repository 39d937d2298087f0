package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/thiagokokada/altcos-graph/internal/store/backend"
	"github.com/thiagokokada/altcos-graph/internal/storetest"
	"github.com/thiagokokada/altcos-graph/internal/stream"
	"github.com/thiagokokada/altcos-graph/internal/version"
)

var p10 = stream.New("/srv", stream.OSNameAltcos, stream.ArchX86_64, stream.BranchP10, "")

func TestChainNewestFirst(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	hashes := fb.chain(p10.Ref(),
		"p10_base.20230101.0.0",
		"p10_base.20230101.0.1",
		"p10_base.20230101.1.0",
	)
	repo := NewWithBackend(p10, ModeBare, fb)

	chain, err := repo.Chain()
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 3 {
		t.Fatalf("len(chain) = %d, want 3", len(chain))
	}
	for i, c := range chain {
		want := hashes[len(hashes)-1-i]
		if c.Hash != want {
			t.Fatalf("chain[%d] = %s, want %s", i, c.Hash, want)
		}
		if n := fb.loads[c.Hash]; n != 1 {
			t.Fatalf("commit %s loaded %d times, want 1", c.Hash, n)
		}
	}
	if chain[0].Version != version.New(1, 0, stream.BranchP10, "", "20230101") {
		t.Fatalf("head version = %+v", chain[0].Version)
	}
	if chain[2].Parent != "" {
		t.Fatalf("root parent = %q", chain[2].Parent)
	}
}

func TestChainSnapshotIgnoresLaterHeads(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.chain(p10.Ref(), "p10_base.20230101.0.0", "p10_base.20230101.0.1")
	repo := NewWithBackend(p10, ModeBare, fb)

	head, err := repo.ResolveHead()
	if err != nil {
		t.Fatalf("ResolveHead: %v", err)
	}
	// The build pipeline appends while the walk is in progress.
	fb.chain(p10.Ref(), "p10_base.20230101.0.2")

	var n int
	for c, err := range repo.Walk(head) {
		if err != nil {
			t.Fatalf("Walk: %v", err)
		}
		if n == 0 && c.Hash != head {
			t.Fatalf("walk started at %s, want %s", c.Hash, head)
		}
		n++
	}
	if n != 2 {
		t.Fatalf("walked %d commits, want 2", n)
	}
}

func TestResolveHead_NoSuchRef(t *testing.T) {
	t.Parallel()

	repo := NewWithBackend(p10, ModeBare, newFakeBackend())
	if _, err := repo.ResolveHead(); !errors.Is(err, ErrNoSuchRef) {
		t.Fatalf("ResolveHead error = %v, want ErrNoSuchRef", err)
	}
	if _, err := repo.Chain(); !errors.Is(err, ErrNoSuchRef) {
		t.Fatalf("Chain error = %v, want ErrNoSuchRef", err)
	}
}

func TestResolveHead_BackendError(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.resolveErr = errors.New("io error")
	repo := NewWithBackend(p10, ModeBare, fb)
	_, err := repo.ResolveHead()
	if err == nil || errors.Is(err, ErrNoSuchRef) {
		t.Fatalf("ResolveHead error = %v, want backend error", err)
	}
}

func TestLoadParentAndVersion(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	hashes := fb.chain(p10.Ref(), "p10_base.20230101.0.0", "p10_base.20230101.0.1")
	repo := NewWithBackend(p10, ModeBare, fb)

	parent, ok, err := repo.LoadParent(hashes[1])
	if err != nil || !ok || parent != hashes[0] {
		t.Fatalf("LoadParent = %q, %v, %v", parent, ok, err)
	}
	parent, ok, err = repo.LoadParent(hashes[0])
	if err != nil || ok || parent != "" {
		t.Fatalf("LoadParent(root) = %q, %v, %v", parent, ok, err)
	}
	v, err := repo.LoadVersion(hashes[1])
	if err != nil || v != "p10_base.20230101.0.1" {
		t.Fatalf("LoadVersion = %q, %v", v, err)
	}
	if _, _, err := repo.LoadParent("missing"); err == nil {
		t.Fatal("expected error for unknown commit")
	}
}

func TestMalformedCommit(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	hashes := fb.chain(p10.Ref(), "p10_base.20230101.0.0", "garbage")
	repo := NewWithBackend(p10, ModeBare, fb)

	if _, err := repo.LoadVersion(hashes[1]); !errors.Is(err, ErrMalformedCommit) || !errors.Is(err, version.ErrInvalidVersion) {
		t.Fatalf("LoadVersion error = %v", err)
	}
	if _, err := repo.Chain(); !errors.Is(err, ErrMalformedCommit) {
		t.Fatalf("Chain error = %v, want ErrMalformedCommit", err)
	}
}

func TestWalkDetectsCycle(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	fb.commits["a"] = backend.Commit{Hash: "a", Parent: "b", Version: "p10_base.20230101.0.1"}
	fb.commits["b"] = backend.Commit{Hash: "b", Parent: "a", Version: "p10_base.20230101.0.0"}
	fb.refs[p10.Ref()] = "a"
	repo := NewWithBackend(p10, ModeBare, fb)

	if _, err := repo.Chain(); !errors.Is(err, ErrChainCycle) {
		t.Fatalf("Chain error = %v, want ErrChainCycle", err)
	}
}

func TestWalkStopsEarly(t *testing.T) {
	t.Parallel()

	fb := newFakeBackend()
	hashes := fb.chain(p10.Ref(), "p10_base.20230101.0.0", "p10_base.20230101.0.1", "p10_base.20230101.0.2")
	repo := NewWithBackend(p10, ModeBare, fb)

	for range repo.Walk(hashes[2]) {
		break
	}
	if fb.loads[hashes[1]] != 0 {
		t.Fatalf("walk loaded past the break")
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	s := stream.New("/srv", stream.OSNameAltcos, stream.ArchX86_64, stream.BranchP10, "k8s")
	for mode, want := range map[string]string{
		"bare":    s.OstreeBareDir(),
		"archive": s.OstreeArchiveDir(),
	} {
		m, err := ParseMode(mode)
		if err != nil {
			t.Fatalf("ParseMode(%q): %v", mode, err)
		}
		dir, err := m.Dir(s)
		if err != nil || dir != want {
			t.Fatalf("Dir = %q, %v, want %q", dir, err, want)
		}
	}
	if _, err := ParseMode("z2"); err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestOpen_GitStore(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	s := stream.New(root, stream.OSNameAltcos, stream.ArchX86_64, stream.BranchP10, "k8s")
	dir := s.OstreeBareDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	repo := storetest.InitBare(t, dir)
	hashes := storetest.CommitChain(t, repo, s.Ref(), "p10_k8s.20230101.0.0", "p10_k8s.20230101.0.1")

	r, err := Open(s, ModeBare, backend.KindGit)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if r.Stream() != s || r.Mode() != ModeBare || r.Path() != dir {
		t.Fatalf("unexpected handle: %+v %q %q", r.Stream(), r.Mode(), r.Path())
	}
	chain, err := r.Chain()
	if err != nil {
		t.Fatalf("Chain: %v", err)
	}
	if len(chain) != 2 || chain[0].Hash != hashes[1] || chain[0].Version.Substream != "k8s" {
		t.Fatalf("unexpected chain: %+v", chain)
	}
}

func TestOpen_Missing(t *testing.T) {
	t.Parallel()

	s := stream.New(filepath.Join(t.TempDir(), "nope"), stream.OSNameAltcos, stream.ArchX86_64, stream.BranchP10, "")
	if _, err := Open(s, ModeArchive, backend.KindGit); !errors.Is(err, ErrRepoOpen) {
		t.Fatalf("Open error = %v, want ErrRepoOpen", err)
	}
	if _, err := Open(s, Mode("z2"), backend.KindGit); !errors.Is(err, ErrRepoOpen) {
		t.Fatalf("Open error = %v, want ErrRepoOpen", err)
	}
}
