package server

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/thiagokokada/altcos-graph/internal/config"
	"github.com/thiagokokada/altcos-graph/internal/graph"
	"github.com/thiagokokada/altcos-graph/internal/metrics"
	"github.com/thiagokokada/altcos-graph/internal/store"
	"github.com/thiagokokada/altcos-graph/internal/stream"
	"github.com/thiagokokada/altcos-graph/internal/version"
)

// Node metadata keys understood by Zincati.
const (
	MetadataAgeIndex = "org.fedoraproject.coreos.releases.age_index"
	MetadataScheme   = "org.fedoraproject.coreos.scheme"

	SchemeChecksum = "checksum"
)

type NodeResponse struct {
	Version  string            `json:"version"`
	Metadata map[string]string `json:"metadata"`
	Payload  string            `json:"payload"`
}

type GraphResponse struct {
	Nodes []NodeResponse `json:"nodes"`
	Edges [][2]int       `json:"edges"`
}

// NewGraphResponse renders g in the Cincinnati graph format.
func NewGraphResponse(g graph.Graph) GraphResponse {
	resp := GraphResponse{
		Nodes: make([]NodeResponse, 0, len(g.Nodes)),
		Edges: make([][2]int, 0, len(g.Edges)),
	}
	for _, n := range g.Nodes {
		resp.Nodes = append(resp.Nodes, NodeResponse{
			Version: n.Version,
			Metadata: map[string]string{
				MetadataAgeIndex: strconv.Itoa(n.AgeIndex),
				MetadataScheme:   SchemeChecksum,
			},
			Payload: n.Payload,
		})
	}
	for _, e := range g.Edges {
		resp.Edges = append(resp.Edges, [2]int(e))
	}
	return resp
}

// Query is a validated graph request.
type Query struct {
	Arch    stream.Arch
	Branch  stream.Branch
	Version version.Version
}

// ParseQuery validates the three parameters in order and returns the first
// failure. "stream" names the release branch here, not a stream.Stream.
func ParseQuery(basearch, branch, osVersion string) (Query, error) {
	arch, err := stream.ParseArch(basearch)
	if err != nil {
		return Query{}, err
	}
	b, err := stream.ParseBranch(branch)
	if err != nil {
		return Query{}, err
	}
	v, err := version.Parse(osVersion)
	if err != nil {
		return Query{}, err
	}
	return Query{Arch: arch, Branch: b, Version: v}, nil
}

// Stream returns the update channel the query addresses below root.
func (q Query) Stream(root string) stream.Stream {
	return stream.New(root, stream.OSNameAltcos, q.Arch, q.Branch, q.Version.Substream)
}

func (s *Server) handleGraph(c *gin.Context) {
	q, err := ParseQuery(c.Query("basearch"), c.Query("stream"), c.Query("os_version"))
	if err != nil {
		s.sendError(c, err)
		return
	}
	g, err := BuildGraph(s.cfg, q.Stream(s.cfg.StreamsRoot))
	if err != nil {
		s.sendError(c, err)
		return
	}
	metrics.GraphRequests.WithLabelValues("ok").Inc()
	c.JSON(http.StatusOK, NewGraphResponse(g))
}

// BuildGraph walks the chain of st in the configured store and builds its
// graph with the configured policy.
func BuildGraph(cfg *config.Config, st stream.Stream) (graph.Graph, error) {
	start := time.Now()
	repo, err := store.Open(st, cfg.StoreMode(), cfg.StoreBackend())
	if err != nil {
		return graph.Graph{}, err
	}
	chain, err := repo.Chain()
	if err != nil {
		return graph.Graph{}, err
	}
	g, err := graph.Build(chain, cfg.Policy())
	if err != nil {
		return graph.Graph{}, err
	}
	metrics.ChainLength.Observe(float64(len(chain)))
	metrics.GraphDuration.Observe(time.Since(start).Seconds())
	slog.Debug("graph built",
		slog.String("ref", st.Ref()),
		slog.Int("nodes", len(g.Nodes)),
		slog.Int("edges", len(g.Edges)),
	)
	return g, nil
}

func (s *Server) sendError(c *gin.Context, err error) {
	kind, status := KindOf(err)
	slog.Error("graph request failed",
		slog.String("kind", kind.String()),
		slog.Int("status", status),
		slog.Any("error", err),
	)
	metrics.GraphRequests.WithLabelValues(kind.String()).Inc()
	c.JSON(status, ErrorResponse{Kind: kind, Value: err.Error()})
}
