package backend

import (
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Minimum supported ostree release for the CLI backend. "config get" and the
// "Version:" line of "ostree show" are both present since 2018.
var minOSTreeVersion = ostreeVersion{year: 2018, release: 5}

// ostree versions are <year>.<release>, e.g. 2023.1.
type ostreeVersion struct {
	year    int
	release int
}

func MinOSTreeVersion() string {
	return minOSTreeVersion.String()
}

func (v ostreeVersion) String() string {
	return fmt.Sprintf("%d.%d", v.year, v.release)
}

func (v ostreeVersion) less(other ostreeVersion) bool {
	if v.year != other.year {
		return v.year < other.year
	}
	return v.release < other.release
}

// parseOSTreeVersionOutput parses the YAML document printed by
// "ostree --version":
//
//	libostree:
//	 Version: '2023.1'
//	 Git: v2023.1
//	 Features:
//	  - libcurl
func parseOSTreeVersionOutput(out string) (ostreeVersion, bool) {
	var doc struct {
		Libostree struct {
			Version string `yaml:"Version"`
		} `yaml:"libostree"`
	}
	if err := yaml.Unmarshal([]byte(out), &doc); err != nil {
		return ostreeVersion{}, false
	}
	s := strings.TrimSpace(doc.Libostree.Version)
	if s == "" {
		return ostreeVersion{}, false
	}
	yearStr, releaseStr, found := strings.Cut(s, ".")
	year, err := strconv.Atoi(yearStr)
	if err != nil {
		return ostreeVersion{}, false
	}
	release := 0
	if found {
		// Tolerate point releases such as "2020.8.1".
		releaseStr, _, _ = strings.Cut(releaseStr, ".")
		if release, err = strconv.Atoi(releaseStr); err != nil {
			return ostreeVersion{}, false
		}
	}
	return ostreeVersion{year: year, release: release}, true
}

type ostreeVersionInfo struct {
	out    string
	parsed ostreeVersion
	ok     bool
	err    error
}

var (
	ostreeVersionOnce      sync.Once
	ostreeVersionInfoCache ostreeVersionInfo
)

func ostreeVersionInfoCached() ostreeVersionInfo {
	ostreeVersionOnce.Do(func() {
		outBytes, err := exec.Command("ostree", "--version").CombinedOutput()
		out := strings.TrimSpace(string(outBytes))
		ostreeVersionInfoCache.out = out
		if err != nil {
			if out != "" {
				ostreeVersionInfoCache.err = fmt.Errorf("ostree --version: %v: %s", err, out)
				return
			}
			ostreeVersionInfoCache.err = fmt.Errorf("ostree --version: %w", err)
			return
		}
		parsed, ok := parseOSTreeVersionOutput(out)
		ostreeVersionInfoCache.parsed = parsed
		ostreeVersionInfoCache.ok = ok
		if !ok {
			ostreeVersionInfoCache.err = fmt.Errorf("unable to parse ostree version output: %q", out)
		}
	})
	return ostreeVersionInfoCache
}

// OSTreeVersion returns the installed libostree release, e.g. "2023.1".
func OSTreeVersion() (string, error) {
	info := ostreeVersionInfoCached()
	if info.err != nil {
		return "", info.err
	}
	return info.parsed.String(), nil
}

func ensureMinOSTreeVersion() error {
	info := ostreeVersionInfoCached()
	if info.err != nil {
		return info.err
	}
	if info.parsed.less(minOSTreeVersion) {
		return fmt.Errorf("ostree %s is too old; altcos-graph requires ostree >= %s", info.parsed, minOSTreeVersion)
	}
	return nil
}
