// Package stream maps update channels to OSTree references and to the on-disk
// layout of the streams root.
package stream

import (
	"errors"
	"fmt"
	"path"
	"path/filepath"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	ErrInvalidOSName       = errors.New("invalid os name")
	ErrInvalidArchitecture = errors.New("invalid architecture")
	ErrInvalidBranch       = errors.New("invalid branch")
	ErrInvalidReference    = errors.New("invalid reference")
)

type OSName string

const OSNameAltcos OSName = "altcos"

type Arch string

const ArchX86_64 Arch = "x86_64"

type Branch string

const (
	BranchSisyphus Branch = "sisyphus"
	BranchP10      Branch = "p10"
)

var (
	osNames  = []OSName{OSNameAltcos}
	arches   = []Arch{ArchX86_64}
	branches = []Branch{BranchSisyphus, BranchP10}
)

// Arches and Branches return the supported enumeration values.
func Arches() []Arch     { return append([]Arch(nil), arches...) }
func Branches() []Branch { return append([]Branch(nil), branches...) }

func ParseOSName(s string) (OSName, error) {
	for _, v := range osNames {
		if string(v) == strings.ToLower(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidOSName, s)
}

func ParseArch(s string) (Arch, error) {
	for _, v := range arches {
		if string(v) == strings.ToLower(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidArchitecture, s)
}

func ParseBranch(s string) (Branch, error) {
	for _, v := range branches {
		if string(v) == strings.ToLower(s) {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidBranch, s)
}

// ValidSubstream reports whether s can name a sub-stream: one non-empty,
// lower-case ref segment that is also a plain directory name. Refs are
// case-normalized on parse, so anything else would not survive Ref/ParseRef.
func ValidSubstream(s string) error {
	switch {
	case s == "":
		return errors.New("empty sub-stream")
	case s == "." || s == "..":
		return fmt.Errorf("sub-stream %q is not a directory name", s)
	case strings.ContainsAny(s, `/\`):
		return fmt.Errorf("sub-stream %q contains a path separator", s)
	case s != strings.ToLower(s):
		return fmt.Errorf("sub-stream %q is not lower-case", s)
	}
	return nil
}

// Title renders the branch the way sub-stream refs spell it ("p10" -> "P10").
func (b Branch) Title() string {
	return cases.Title(language.Und).String(string(b))
}

// Stream identifies one update channel below a streams root.
type Stream struct {
	Root      string
	OSName    OSName
	Arch      Arch
	Branch    Branch
	Substream string
}

func New(root string, osname OSName, arch Arch, branch Branch, substream string) Stream {
	return Stream{Root: root, OSName: osname, Arch: arch, Branch: branch, Substream: substream}
}

// Base returns the stream with the sub-stream dropped.
func (s Stream) Base() Stream {
	s.Substream = ""
	return s
}

// Ref returns the OSTree reference of the stream, e.g. "altcos/x86_64/p10" or
// "altcos/x86_64/P10/k8s".
//
// The branch is title-cased only when a sub-stream is present. Existing
// repositories were committed with this spelling, so it must stay as is.
func (s Stream) Ref() string {
	if s.Substream == "" {
		return path.Join(string(s.OSName), string(s.Arch), string(s.Branch))
	}
	return path.Join(string(s.OSName), string(s.Arch), s.Branch.Title(), s.Substream)
}

func (s Stream) String() string {
	return s.Ref()
}

// ParseRef parses an OSTree reference produced by Ref. Input is case-insensitive;
// the returned stream is lower-cased.
func ParseRef(root, ref string) (Stream, error) {
	parts := strings.Split(strings.ToLower(ref), "/")
	if len(parts) != 3 && len(parts) != 4 {
		return Stream{}, fmt.Errorf("%w: %q: expected 3 or 4 segments, got %d", ErrInvalidReference, ref, len(parts))
	}
	osname, err := ParseOSName(parts[0])
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	arch, err := ParseArch(parts[1])
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	branch, err := ParseBranch(parts[2])
	if err != nil {
		return Stream{}, fmt.Errorf("%w: %w", ErrInvalidReference, err)
	}
	var substream string
	if len(parts) == 4 {
		substream = parts[3]
		if err := ValidSubstream(substream); err != nil {
			return Stream{}, fmt.Errorf("%w: %q: %w", ErrInvalidReference, ref, err)
		}
	}
	return New(root, osname, arch, branch, substream), nil
}

// Dir is the root of the stream: <root>/<branch>/<arch>[/<substream>].
func (s Stream) Dir() string {
	return filepath.Join(s.Root, string(s.Branch), string(s.Arch), s.Substream)
}

// RootfsDir holds rootfs images built by mkimage-profiles. Shared by all
// sub-streams of a branch/arch.
func (s Stream) RootfsDir() string {
	return filepath.Join(s.Base().Dir(), "rootfs")
}

// OstreeBareDir is the bare-mode repository. Sub-streams are refs inside the
// same physical repository, so the path ignores the sub-stream.
func (s Stream) OstreeBareDir() string {
	return filepath.Join(s.Base().Dir(), "ostree", "bare")
}

// OstreeArchiveDir is the archive-mode repository served to clients.
func (s Stream) OstreeArchiveDir() string {
	return filepath.Join(s.Base().Dir(), "ostree", "archive")
}

// VarsDir holds the version files of the user layer.
func (s Stream) VarsDir() string {
	return filepath.Join(s.Dir(), "vars")
}

// WorkDir holds the overlay working directories of the stream.
func (s Stream) WorkDir() string {
	return filepath.Join(s.Dir(), "work")
}

// MergedDir is the overlay mount point.
func (s Stream) MergedDir() string {
	return filepath.Join(s.WorkDir(), "merged")
}
