package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/factlake/factlake/api/config"
	"github.com/factlake/factlake/pkg/model"
)

type createSourceRequest struct {
	SourceName       string  `json:"source_name"`
	SourceType       string  `json:"source_type"`
	AuthorityRank    int     `json:"authority_rank"`
	AuthorityDomains *string `json:"authority_domains"`
	UpdateFrequency  *string `json:"update_frequency"`
	Description      *string `json:"description"`
}

// CreateSource handles POST workspace/{wid}/sources.
func CreateSource(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}

	var req createSourceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "decoding request: "+err.Error())
		return
	}
	if req.SourceName == "" {
		writeError(w, http.StatusBadRequest, "source_name is required")
		return
	}

	source := model.Source{
		WorkspaceID:      wid,
		SourceName:       req.SourceName,
		SourceType:       req.SourceType,
		AuthorityRank:    req.AuthorityRank,
		AuthorityDomains: req.AuthorityDomains,
		UpdateFrequency:  req.UpdateFrequency,
		Description:      req.Description,
	}

	id, err := config.Store.UpsertSource(r.Context(), source)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"source_id": id})
}

// ListSources handles GET workspace/{wid}/sources.
func ListSources(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	sources, err := config.Store.ListSources(r.Context(), wid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sources)
}
