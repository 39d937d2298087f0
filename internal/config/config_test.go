package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"

	"github.com/thiagokokada/altcos-graph/internal/graph"
	"github.com/thiagokokada/altcos-graph/internal/store"
	"github.com/thiagokokada/altcos-graph/internal/store/backend"
)

func TestLoadDefaults(t *testing.T) {
	root := t.TempDir()
	t.Setenv("STREAMS_ROOT", root)

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StreamsRoot != root {
		t.Errorf("StreamsRoot = %q, want %q", cfg.StreamsRoot, root)
	}
	if cfg.Listen != ":8080" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, ":8080")
	}
	if got := cfg.StoreBackend(); got != backend.KindOSTree {
		t.Errorf("StoreBackend() = %q, want %q", got, backend.KindOSTree)
	}
	if got := cfg.StoreMode(); got != store.ModeBare {
		t.Errorf("StoreMode() = %q, want %q", got, store.ModeBare)
	}
	if got := cfg.Policy(); got != graph.DefaultPolicy() {
		t.Errorf("Policy() = %+v, want %+v", got, graph.DefaultPolicy())
	}
	if got := cfg.SlogLevel(); got != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want %v", got, slog.LevelInfo)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 10s", cfg.ShutdownTimeout)
	}
	if cfg.Watch {
		t.Error("Watch = true, want false")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	root := t.TempDir()
	t.Setenv("STREAMS_ROOT", "")
	t.Setenv("ALTCOS_GRAPH_STREAMS_ROOT", root)
	t.Setenv("ALTCOS_GRAPH_BACKEND", "git")
	t.Setenv("ALTCOS_GRAPH_GRAPH_MODE", "archive")
	t.Setenv("ALTCOS_GRAPH_SKIP_EDGES", "false")
	t.Setenv("ALTCOS_GRAPH_LOG_LEVEL", "debug")
	t.Setenv("ALTCOS_GRAPH_SHUTDOWN_TIMEOUT", "3s")

	v := viper.New()
	SetDefaults(v)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.StreamsRoot != root {
		t.Errorf("StreamsRoot = %q, want %q", cfg.StreamsRoot, root)
	}
	if got := cfg.StoreBackend(); got != backend.KindGit {
		t.Errorf("StoreBackend() = %q, want %q", got, backend.KindGit)
	}
	if got := cfg.StoreMode(); got != store.ModeArchive {
		t.Errorf("StoreMode() = %q, want %q", got, store.ModeArchive)
	}
	if cfg.Policy().SkipEdges {
		t.Error("Policy().SkipEdges = true, want false")
	}
	if got := cfg.SlogLevel(); got != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want %v", got, slog.LevelDebug)
	}
	if cfg.ShutdownTimeout != 3*time.Second {
		t.Errorf("ShutdownTimeout = %v, want 3s", cfg.ShutdownTimeout)
	}
}

func TestLoadConfigFile(t *testing.T) {
	root := t.TempDir()
	t.Setenv("STREAMS_ROOT", "")
	t.Setenv("ALTCOS_GRAPH_STREAMS_ROOT", "")
	file := filepath.Join(t.TempDir(), "altcos-graph.yaml")
	content := strings.Join([]string{
		"streams_root: " + root,
		"listen: 127.0.0.1:9000",
		"min_skip: 3",
		"log_format: json",
		"",
	}, "\n")
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	v := viper.New()
	SetDefaults(v)
	v.SetConfigFile(file)
	if err := v.ReadInConfig(); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Listen != "127.0.0.1:9000" {
		t.Errorf("Listen = %q, want %q", cfg.Listen, "127.0.0.1:9000")
	}
	if want := (graph.Policy{SkipEdges: true, MinSkip: 3}); cfg.Policy() != want {
		t.Errorf("Policy() = %+v, want %+v", cfg.Policy(), want)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat = %q, want %q", cfg.LogFormat, "json")
	}
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name    string
		set     map[string]any
		wantErr error
	}{
		{name: "missing_root", set: map[string]any{KeyStreamsRoot: ""}},
		{name: "root_not_dir", set: map[string]any{KeyStreamsRoot: "/nonexistent/altcos/streams"}},
		{name: "bad_backend", set: map[string]any{KeyBackend: "svn"}, wantErr: backend.ErrUnknownKind},
		{name: "empty_backend", set: map[string]any{KeyBackend: ""}},
		{name: "bad_mode", set: map[string]any{KeyGraphMode: "archive-z2"}, wantErr: store.ErrUnknownMode},
		{name: "min_skip_too_small", set: map[string]any{KeyMinSkip: 1}},
		{name: "bad_level", set: map[string]any{KeyLogLevel: "trace"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			SetDefaults(v)
			v.Set(KeyStreamsRoot, t.TempDir())
			for k, val := range tt.set {
				v.Set(k, val)
			}
			_, err := Load(v)
			if err == nil {
				t.Fatal("Load() succeeded, want error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("Load() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
