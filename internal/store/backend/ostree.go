package backend

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

type ostreeCLI struct {
	path string
	mode string
}

func OpenOSTree(repoPath string) (Backend, error) {
	if err := ensureMinOSTreeVersion(); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(repoPath)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("open repository: %s: %w", abs, ErrNotRepository)
	}
	tmp := &ostreeCLI{path: abs}
	mode, err := tmp.runOSTreeCommand([]string{"config", "get", "core.mode"}, "ostree config")
	if err != nil {
		return nil, fmt.Errorf("open repository: %w: %w", ErrNotRepository, err)
	}
	repo := &ostreeCLI{path: abs, mode: strings.TrimSpace(mode)}
	slog.Debug("ostree repository opened", slog.String("path", repo.path), slog.String("mode", repo.mode))
	return repo, nil
}

func (o *ostreeCLI) RepoPath() string {
	if o == nil {
		return ""
	}
	return o.path
}

func (o *ostreeCLI) runOSTreeCommand(args []string, context string) (string, error) {
	if o == nil || o.path == "" {
		return "", fmt.Errorf("repository root not set")
	}
	cmdArgs := append([]string{"--repo=" + o.path}, args...)
	cmd := exec.Command("ostree", cmdArgs...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if stderr.Len() > 0 {
			return "", &commandError{context: context, err: err, stderr: strings.TrimSpace(stderr.String())}
		}
		return "", fmt.Errorf("%s: %w", context, err)
	}
	return stdout.String(), nil
}

type commandError struct {
	context string
	err     error
	stderr  string
}

func (e *commandError) Error() string {
	return fmt.Sprintf("%s: %v: %s", e.context, e.err, e.stderr)
}

func (e *commandError) Unwrap() error { return e.err }

func (o *ostreeCLI) ResolveRef(ref string) (string, bool, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", false, fmt.Errorf("ref not specified")
	}
	out, err := o.runOSTreeCommand([]string{"rev-parse", ref}, "ostree rev-parse")
	if err != nil {
		var cmdErr *commandError
		if errors.As(err, &cmdErr) && strings.Contains(cmdErr.stderr, "not found") {
			return "", false, nil
		}
		return "", false, err
	}
	hash := strings.TrimSpace(out)
	if hash == "" {
		return "", false, nil
	}
	return hash, true, nil
}

func (o *ostreeCLI) LoadCommit(hash string) (*Commit, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, fmt.Errorf("commit not specified")
	}
	out, err := o.runOSTreeCommand([]string{"show", hash}, "ostree show")
	if err != nil {
		return nil, err
	}
	commit, err := parseOSTreeShow(strings.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("parse ostree show %s: %w", hash, err)
	}
	if commit.Hash == "" {
		commit.Hash = hash
	}
	return commit, nil
}

// parseOSTreeShow reads the header printed by "ostree show":
//
//	commit <checksum>
//	Parent:  <checksum>
//	ContentChecksum:  <checksum>
//	Date:  2023-01-01 00:00:00 +0000
//	Version: p10_base.20230101.0.0
//
// Parent and Version are omitted by ostree when absent. The header ends at the
// first blank line; the commit subject and body follow.
func parseOSTreeShow(r io.Reader) (*Commit, error) {
	var commit Commit
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			break
		}
		key, value, found := strings.Cut(line, " ")
		if !found {
			return nil, fmt.Errorf("unexpected line: %q", line)
		}
		value = strings.TrimSpace(value)
		switch key {
		case "commit":
			commit.Hash = value
		case "Parent:":
			commit.Parent = value
		case "Version:":
			commit.Version = value
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if commit.Hash == "" {
		return nil, fmt.Errorf("missing commit line")
	}
	return &commit, nil
}
