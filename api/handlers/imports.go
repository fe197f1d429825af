package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/factlake/factlake/api/config"
	"github.com/factlake/factlake/api/metrics"
	"github.com/factlake/factlake/pkg/dap"
	"github.com/factlake/factlake/pkg/ingestion"
	"github.com/factlake/factlake/pkg/specs"
	"github.com/factlake/factlake/pkg/tabular"
)

var workspaceIDPattern = regexp.MustCompile(`^[a-z0-9_]{1,64}$`)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func workspaceID(r *http.Request) (string, bool) {
	wid := chi.URLParam(r, "wid")
	return wid, workspaceIDPattern.MatchString(wid)
}

// CreateImport handles POST workspace/{wid}/imports: it stages the
// uploaded spreadsheet, runs it through the ingestion engine under the
// workspace's advisory lock, and returns the import run outcome.
func CreateImport(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}

	if err := r.ParseMultipartForm(64 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "parsing upload: "+err.Error())
		return
	}
	specName := r.FormValue("spec_name")
	if specName == "" {
		writeError(w, http.StatusBadRequest, "spec_name is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required: "+err.Error())
		return
	}
	defer file.Close()

	spec, err := config.Specs.Get(specName)
	if err != nil {
		writeError(w, http.StatusNotFound, "unknown ingestion spec: "+err.Error())
		return
	}

	destDir := filepath.Join("data", "raw", wid)
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}
	destPath := filepath.Join(destDir, header.Filename)
	dest, err := os.Create(destPath)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}
	if _, err := io.Copy(dest, file); err != nil {
		dest.Close()
		writeError(w, http.StatusInternalServerError, "storing upload: "+err.Error())
		return
	}
	dest.Close()

	release, err := config.Locker.Acquire(r.Context(), wid)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, "acquiring workspace lock: "+err.Error())
		return
	}
	defer release()

	rows, err := stageFile(destPath, *spec)
	if err != nil {
		writeError(w, http.StatusBadRequest, "parsing upload: "+err.Error())
		return
	}

	engine := ingestion.New(config.Store, config.Log, config.Clock)
	start := time.Now()
	result, err := engine.RunImport(r.Context(), wid, header.Filename, rows, *spec, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "import failed: "+err.Error())
		return
	}
	metrics.RecordImportRun(wid, string(result.Status), time.Since(start))
	metrics.RecordAssertionsWritten(wid, result.Stats.AssertionsCreated, result.Stats.AssertionsModified, result.Stats.AssertionsClosed, result.Stats.AssertionsUnchanged)

	writeJSON(w, http.StatusOK, map[string]any{
		"import_run_id": result.ImportRunID,
		"status":        result.Status,
		"message":       fmt.Sprintf("%d created, %d modified, %d closed, %d unchanged, %d errors", result.Stats.AssertionsCreated, result.Stats.AssertionsModified, result.Stats.AssertionsClosed, result.Stats.AssertionsUnchanged, result.Stats.Errors),
	})
}

func stageFile(path string, spec specs.IngestionSpec) ([]tabular.StagedRow, error) {
	switch spec.SourceType {
	case "", "excel":
		return tabular.ParseExcel(path, spec)
	case "csv":
		return tabular.ParseCSV(path, spec)
	default:
		return nil, fmt.Errorf("unsupported source_type %q", spec.SourceType)
	}
}

// GetImport handles GET workspace/{wid}/imports/{id}.
func GetImport(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	id := chi.URLParam(r, "id")

	run, err := config.Store.GetImportRun(r.Context(), wid, id)
	if err != nil {
		if errors.Is(err, dap.ErrNotFound) {
			writeError(w, http.StatusNotFound, "import run not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if run == nil {
		writeError(w, http.StatusNotFound, "import run not found")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// ListImports handles GET workspace/{wid}/imports.
func ListImports(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	runs, err := config.Store.ListImportRuns(r.Context(), wid, 100)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetImportDiff handles GET workspace/{wid}/imports/{id}/diff: the
// assertions recorded under this import run, split into those still open
// (created_assertions) and those since closed (closed_assertions). The
// ChangeEvent and its stats are not included, and assertions from earlier
// runs that this run closed are not listed.
func GetImportDiff(w http.ResponseWriter, r *http.Request) {
	wid, ok := workspaceID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid workspace id")
		return
	}
	id := chi.URLParam(r, "id")

	assertions, err := config.Store.LookupAssertionsByImportRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	var created, closed []any
	for _, a := range assertions {
		if a.WorkspaceID != wid {
			continue
		}
		if a.IsOpen() {
			created = append(created, a)
		} else {
			closed = append(closed, a)
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"import_run_id":      id,
		"created_assertions": created,
		"closed_assertions":  closed,
	})
}
