package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/namelens/domainsearch/internal/core"
	"github.com/namelens/domainsearch/internal/core/engine"
	"github.com/namelens/domainsearch/internal/core/suggest"
	apperrors "github.com/namelens/domainsearch/internal/errors"
	"github.com/namelens/domainsearch/internal/observability"
)

// Search runs the whole pipeline for ?q= and returns the final snapshot.
func (a *DomainAPI) Search(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	searcher, ok := a.searcher(w, r, query)
	if !ok {
		return
	}

	snapshot, err := searcher.Run(r.Context(), query)
	if err != nil {
		a.searchError(w, r, query, err)
		return
	}
	writeJSON(w, http.StatusOK, snapshot)
}

// SearchStream writes one NDJSON line per snapshot until the search completes.
// Snapshots published faster than the client reads are coalesced; the final
// snapshot is always written.
func (a *DomainAPI) SearchStream(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	searcher, ok := a.searcher(w, r, query)
	if !ok {
		return
	}

	var (
		mu     sync.Mutex
		latest *core.SearchSnapshot
	)
	notify := make(chan struct{}, 1)
	searcher.OnSnapshot = func(snapshot *core.SearchSnapshot) {
		mu.Lock()
		latest = snapshot
		mu.Unlock()
		select {
		case notify <- struct{}{}:
		default:
		}
	}

	if _, err := searcher.Start(r.Context(), query); err != nil {
		a.searchError(w, r, query, err)
		return
	}
	defer searcher.Cancel()

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	encoder := json.NewEncoder(w)
	controller := http.NewResponseController(w)
	var written *core.SearchSnapshot

	for {
		select {
		case <-r.Context().Done():
			return
		case <-notify:
		}

		mu.Lock()
		snapshot := latest
		mu.Unlock()
		if snapshot == nil || snapshot == written {
			continue
		}

		if err := encoder.Encode(snapshot); err != nil {
			observability.Logger().Debug("search stream write failed", zap.Error(err))
			return
		}
		_ = controller.Flush()
		written = snapshot

		if snapshot.Complete {
			return
		}
	}
}

func (a *DomainAPI) searcher(w http.ResponseWriter, r *http.Request, query string) (*engine.Searcher, bool) {
	if query == "" {
		respondWithError(w, r, apperrors.NewInvalidInputError("Query parameter q is required"))
		return nil, false
	}
	if a.deps.NewSearcher == nil {
		respondWithError(w, r, apperrors.NewInternalError("search is not configured"))
		return nil, false
	}
	searcher := a.deps.NewSearcher()
	if searcher == nil {
		respondWithError(w, r, apperrors.NewInternalError("search is not configured"))
		return nil, false
	}
	return searcher, true
}

func (a *DomainAPI) searchError(w http.ResponseWriter, r *http.Request, query string, err error) {
	switch {
	case errors.Is(err, suggest.ErrEmptyName):
		respondWithError(w, r, apperrors.WrapInvalidInput(r.Context(), err, "Query has no usable characters"))
	case errors.Is(err, engine.ErrSuperseded):
		respondWithError(w, r, apperrors.WrapTimeout(r.Context(), err, "Search did not complete"))
	default:
		observability.Logger().Error("search failed", zap.String("query", query), zap.Error(err))
		respondWithError(w, r, apperrors.FromLookupError(r.Context(), err, "Search failed"))
	}
}
