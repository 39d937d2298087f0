// Package watch follows stream heads by watching the refs directories of
// every commit store below the streams root.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/thiagokokada/altcos-graph/internal/debounce"
	"github.com/thiagokokada/altcos-graph/internal/metrics"
	"github.com/thiagokokada/altcos-graph/internal/store"
	"github.com/thiagokokada/altcos-graph/internal/store/backend"
	"github.com/thiagokokada/altcos-graph/internal/stream"
)

const rescanDebounceDelay = 350 * time.Millisecond

// Change is a stream head that moved between two scans. Old is empty for a
// ref seen for the first time; New is empty for a ref that disappeared.
type Change struct {
	Ref string
	Old string
	New string
}

type Watcher struct {
	root string
	mode store.Mode
	kind backend.Kind

	// OnChange, if set, is called after every scan that found changes.
	OnChange func([]Change)

	// scanMu serializes whole scans so each change is reported once.
	scanMu sync.Mutex

	mu      sync.Mutex
	heads   map[string]string
	scanned bool
}

func New(root string, mode store.Mode, kind backend.Kind) *Watcher {
	return &Watcher{root: root, mode: mode, kind: kind, heads: map[string]string{}}
}

// Scan resolves every stream ref of every store and reports what moved since
// the previous scan. Stores that fail to open are skipped and reported in
// the joined error.
func (w *Watcher) Scan() ([]Change, error) {
	w.scanMu.Lock()
	defer w.scanMu.Unlock()

	current := map[string]string{}
	var errs []error
	for _, repoDir := range w.repoDirs() {
		b, err := backend.Open(w.kind, repoDir)
		if err != nil {
			errs = append(errs, fmt.Errorf("open %s: %w", repoDir, err))
			continue
		}
		refs, err := listRefs(refsDir(repoDir))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		for _, ref := range refs {
			s, err := stream.ParseRef(w.root, ref)
			if err != nil {
				slog.Debug("ignoring ref", slog.String("ref", ref), slog.Any("error", err))
				continue
			}
			hash, err := store.NewWithBackend(s, w.mode, b).ResolveHead()
			if errors.Is(err, store.ErrNoSuchRef) {
				continue
			}
			if err != nil {
				errs = append(errs, err)
				continue
			}
			current[s.Ref()] = hash
		}
	}

	w.mu.Lock()
	var changes []Change
	for ref, hash := range current {
		if old := w.heads[ref]; old != hash {
			changes = append(changes, Change{Ref: ref, Old: old, New: hash})
		}
	}
	for ref, old := range w.heads {
		if _, ok := current[ref]; !ok {
			changes = append(changes, Change{Ref: ref, Old: old})
		}
	}
	initial := !w.scanned
	w.heads = current
	w.scanned = true
	onChange := w.OnChange
	w.mu.Unlock()

	slices.SortFunc(changes, func(a, b Change) int { return strings.Compare(a.Ref, b.Ref) })
	for _, c := range changes {
		if initial {
			slog.Debug("stream head", slog.String("ref", c.Ref), slog.String("commit", c.New))
			continue
		}
		slog.Info("stream head moved",
			slog.String("ref", c.Ref),
			slog.String("from", c.Old),
			slog.String("to", c.New),
		)
		metrics.HeadUpdates.WithLabelValues(c.Ref).Inc()
	}
	if len(changes) > 0 && onChange != nil {
		onChange(changes)
	}
	return changes, errors.Join(errs...)
}

// Run scans once, then rescans after ref updates settle until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify: %w", err)
	}
	defer func() {
		if err := fsw.Close(); err != nil {
			slog.Error("watcher close", slog.Any("error", err))
		}
	}()

	repoDirs := w.repoDirs()
	if len(repoDirs) == 0 {
		slog.Warn("no commit stores to watch", slog.String("streams_root", w.root))
	}
	for _, repoDir := range repoDirs {
		if err := addTree(fsw, refsDir(repoDir)); err != nil {
			return err
		}
	}

	if _, err := w.Scan(); err != nil {
		slog.Error("scan stream heads", slog.Any("error", err))
	}
	d := debounce.New(rescanDebounceDelay, func() {
		if _, err := w.Scan(); err != nil {
			slog.Error("scan stream heads", slog.Any("error", err))
		}
	})
	defer d.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(fsw, ev.Name); err != nil {
						slog.Error("watch new directory", slog.Any("error", err))
					}
				}
			}
			if shouldIgnoreWatchPath(ev.Name) {
				continue
			}
			slog.Debug("fsnotify event",
				slog.String("op", ev.Op.String()),
				slog.String("path", ev.Name),
			)
			d.Trigger()
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("fsnotify error", slog.Any("error", err))
		}
	}
}

// repoDirs lists the existing stores, one per branch and architecture.
func (w *Watcher) repoDirs() []string {
	var dirs []string
	for _, branch := range stream.Branches() {
		for _, arch := range stream.Arches() {
			dir, err := w.mode.Dir(stream.New(w.root, stream.OSNameAltcos, arch, branch, ""))
			if err != nil {
				continue
			}
			if info, err := os.Stat(refsDir(dir)); err == nil && info.IsDir() {
				dirs = append(dirs, dir)
			}
		}
	}
	return dirs
}

// Both ostree and git keep branch refs as files under refs/heads.
func refsDir(repoDir string) string {
	return filepath.Join(repoDir, "refs", "heads")
}

// listRefs returns the slash-separated names of the ref files below dir.
func listRefs(dir string) ([]string, error) {
	var refs []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || shouldIgnoreWatchPath(path) {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		refs = append(refs, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list refs in %s: %w", dir, err)
	}
	return refs, nil
}

func addTree(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		slog.Debug("adding path to FS watcher", slog.String("path", path))
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

func shouldIgnoreWatchPath(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".lock" || ext == ".tmp"
}
