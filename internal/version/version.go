// Package version encodes the version stamped on every ALTCOS commit.
//
// The full form is "<branch>_<substream>.<date>.<major>.<minor>", e.g.
// "p10_k8s.20230101.1.0"; the base stream writes "base" in place of the
// sub-stream. The short form drops the prefix: "20230101.1.0".
package version

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/thiagokokada/altcos-graph/internal/stream"
)

var ErrInvalidVersion = errors.New("invalid version")

// BaseSubstream is written in the full form when the version has no sub-stream.
const BaseSubstream = "base"

const dateLayout = "20060102"

var now = time.Now

type Version struct {
	Date      string
	Major     int
	Minor     int
	Branch    stream.Branch
	Substream string
}

// New stamps a version. An empty date means today (UTC).
func New(major, minor int, branch stream.Branch, substream, date string) Version {
	if date == "" {
		date = now().UTC().Format(dateLayout)
	}
	if substream == BaseSubstream {
		substream = ""
	}
	return Version{Date: date, Major: major, Minor: minor, Branch: branch, Substream: substream}
}

// String returns the short form.
func (v Version) String() string {
	return fmt.Sprintf("%s.%d.%d", v.Date, v.Major, v.Minor)
}

// Full returns the full form including branch and sub-stream.
func (v Version) Full() string {
	sub := v.Substream
	if sub == "" {
		sub = BaseSubstream
	}
	return fmt.Sprintf("%s_%s.%s", v.Branch, sub, v)
}

// Parse decodes the full form.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 4 {
		return Version{}, fmt.Errorf("%w: %q: expected 4 dot-separated fields", ErrInvalidVersion, s)
	}
	prefix := strings.Split(parts[0], "_")
	if len(prefix) != 2 {
		return Version{}, fmt.Errorf("%w: %q: expected <branch>_<substream> prefix", ErrInvalidVersion, s)
	}
	branch, err := stream.ParseBranch(prefix[0])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}
	if string(branch) != prefix[0] {
		return Version{}, fmt.Errorf("%w: %q: %w: %q is not lower-case", ErrInvalidVersion, s, stream.ErrInvalidBranch, prefix[0])
	}
	if err := stream.ValidSubstream(prefix[1]); err != nil {
		return Version{}, fmt.Errorf("%w: %q: %w", ErrInvalidVersion, s, err)
	}
	if parts[1] == "" {
		return Version{}, fmt.Errorf("%w: %q: empty date", ErrInvalidVersion, s)
	}
	major, err := parseField(parts[2])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: major: %v", ErrInvalidVersion, s, err)
	}
	minor, err := parseField(parts[3])
	if err != nil {
		return Version{}, fmt.Errorf("%w: %q: minor: %v", ErrInvalidVersion, s, err)
	}
	return New(major, minor, branch, prefix[1], parts[1]), nil
}

// parseField accepts the canonical decimal form only, so Full reproduces the
// parsed text.
func parseField(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty value")
	}
	if strings.Trim(s, "0123456789") != "" {
		return 0, fmt.Errorf("%q is not a decimal number", s)
	}
	if len(s) > 1 && s[0] == '0' {
		return 0, fmt.Errorf("%q has a leading zero", s)
	}
	return strconv.Atoi(s)
}
