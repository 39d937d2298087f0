package server

import (
	"errors"
	"net/http"

	"github.com/thiagokokada/altcos-graph/internal/store"
	"github.com/thiagokokada/altcos-graph/internal/stream"
	"github.com/thiagokokada/altcos-graph/internal/version"
)

// Kind is the error code reported to update agents.
type Kind int

const (
	KindBadBasearch Kind = iota + 1
	KindBadStream
	KindBadVersion
	KindBadRepo
)

func (k Kind) String() string {
	switch k {
	case KindBadBasearch:
		return "bad_basearch"
	case KindBadStream:
		return "bad_stream"
	case KindBadVersion:
		return "bad_version"
	case KindBadRepo:
		return "bad_repo"
	}
	return "unknown"
}

type ErrorResponse struct {
	Kind  Kind   `json:"kind"`
	Value string `json:"value"`
}

// KindOf classifies err. Client input errors and missing stores answer 400;
// corrupt store content answers 500.
func KindOf(err error) (Kind, int) {
	switch {
	case errors.Is(err, store.ErrMalformedCommit), errors.Is(err, store.ErrChainCycle):
		return KindBadRepo, http.StatusInternalServerError
	case errors.Is(err, version.ErrInvalidVersion):
		return KindBadVersion, http.StatusBadRequest
	case errors.Is(err, stream.ErrInvalidArchitecture):
		return KindBadBasearch, http.StatusBadRequest
	case errors.Is(err, stream.ErrInvalidBranch):
		return KindBadStream, http.StatusBadRequest
	case errors.Is(err, store.ErrRepoOpen), errors.Is(err, store.ErrNoSuchRef):
		return KindBadRepo, http.StatusBadRequest
	}
	return KindBadRepo, http.StatusInternalServerError
}
