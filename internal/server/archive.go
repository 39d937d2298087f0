package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/thiagokokada/altcos-graph/internal/stream"
)

// handleArchive serves files of a branch/arch archive repository so that
// clients can pull the payloads the graph names. Directories are not listed.
func (s *Server) handleArchive(c *gin.Context) {
	branch, err := stream.ParseBranch(c.Param("branch"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	arch, err := stream.ParseArch(c.Param("arch"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	dir := stream.New(s.cfg.StreamsRoot, stream.OSNameAltcos, arch, branch, "").OstreeArchiveDir()

	f, err := http.Dir(dir).Open(c.Param("path"))
	if err != nil {
		c.Status(http.StatusNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		c.Status(http.StatusNotFound)
		return
	}
	http.ServeContent(c.Writer, c.Request, info.Name(), info.ModTime(), f)
}
