package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/factlake/factlake/api/config"
	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/resolvedview"
)

// GetEntity handles
// GET workspace/{wid}/entities/{id}?view_mode=resolved|all_claims&scenario_id=base
func GetEntity(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	id := chi.URLParam(r, "id")

	entity, err := config.Store.GetEntity(r.Context(), wid, id)
	if err != nil {
		if errors.Is(err, dap.ErrNotFound) {
			writeError(w, http.StatusNotFound, "entity not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if entity == nil {
		writeError(w, http.StatusNotFound, "entity not found")
		return
	}

	assertions, err := config.Store.GetAssertionsForEntity(r.Context(), wid, id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	authority, err := config.Store.GetSourceAuthorityMap(r.Context(), wid)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	opts := resolvedview.Options{
		ScenarioID: r.URL.Query().Get("scenario_id"),
		Authority:  authority,
	}

	viewMode := r.URL.Query().Get("view_mode")
	if viewMode == "all_claims" {
		claims := resolvedview.GetAllClaims(assertions, opts)
		writeJSON(w, http.StatusOK, map[string]any{
			"entity": entity,
			"claims": claims,
		})
		return
	}

	view := resolvedview.ResolveEntityView(assertions, opts)
	writeJSON(w, http.StatusOK, map[string]any{
		"entity":     entity,
		"properties": view,
	})
}

// SearchEntities handles GET workspace/{wid}/entities?entity_type=&primary_key=&limit=
func SearchEntities(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}

	q := r.URL.Query()
	var entityType, primaryKey *string
	if v := q.Get("entity_type"); v != "" {
		entityType = &v
	}
	if v := q.Get("primary_key"); v != "" {
		primaryKey = &v
	}

	limit := 50
	if v := q.Get("limit"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	entities, err := config.Store.SearchEntities(r.Context(), wid, entityType, primaryKey, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, entities)
}
