package stream

import "strings"

type EnvVar struct {
	Name  string
	Value string
}

// Env lists every addressable attribute of the stream as an environment
// variable, in a fixed order. Build scripts source these to locate the stream.
func (s Stream) Env() []EnvVar {
	return []EnvVar{
		{Name: "STREAMS_ROOT", Value: s.Root},
		{Name: "OSNAME", Value: string(s.OSName)},
		{Name: "ARCH", Value: string(s.Arch)},
		{Name: "BRANCH", Value: string(s.Branch)},
		{Name: "SUBSTREAM", Value: s.Substream},
		{Name: "STREAM_DIR", Value: s.Dir()},
		{Name: "ROOTFS_DIR", Value: s.RootfsDir()},
		{Name: "OSTREE_BARE_DIR", Value: s.OstreeBareDir()},
		{Name: "OSTREE_ARCHIVE_DIR", Value: s.OstreeArchiveDir()},
		{Name: "VARS_DIR", Value: s.VarsDir()},
		{Name: "WORK_DIR", Value: s.WorkDir()},
		{Name: "MERGED_DIR", Value: s.MergedDir()},
		{Name: "STREAM_REF", Value: s.Ref()},
	}
}

// ExportScript renders Env as a single line of shell export statements.
func (s Stream) ExportScript() string {
	vars := s.Env()
	exports := make([]string, 0, len(vars))
	for _, v := range vars {
		exports = append(exports, "export "+v.Name+"="+shellQuote(v.Value))
	}
	return strings.Join(exports, ";")
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
