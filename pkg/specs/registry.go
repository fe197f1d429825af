package specs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Registry caches DomainSchemas by workspace, loading from a directory of
// *.yaml/*.yml files on first access.
type Registry struct {
	mu         sync.RWMutex
	schemasDir string
	schemas    map[string]DomainSchema
}

// NewRegistry builds a Registry rooted at schemasDir.
func NewRegistry(schemasDir string) *Registry {
	return &Registry{schemasDir: schemasDir, schemas: make(map[string]DomainSchema)}
}

// Register adds a schema directly, validating it first (e.g. a schema
// submitted through the workspace-create API rather than loaded from disk).
func (r *Registry) Register(schema DomainSchema) error {
	if errs := ValidateDomainSchema(&schema); len(errs) > 0 {
		return fmt.Errorf("domain schema %q is invalid: %v", schema.Workspace, errs)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[schema.Workspace] = schema
	return nil
}

// Get returns the cached schema for workspaceID, loading it from disk on a
// cache miss.
func (r *Registry) Get(workspaceID string) (*DomainSchema, error) {
	r.mu.RLock()
	if schema, ok := r.schemas[workspaceID]; ok {
		r.mu.RUnlock()
		return &schema, nil
	}
	r.mu.RUnlock()
	return r.loadFromDisk(workspaceID)
}

func (r *Registry) loadFromDisk(workspaceID string) (*DomainSchema, error) {
	candidates, err := r.candidateFiles()
	if err != nil {
		return nil, err
	}

	for _, path := range candidates {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		schema, err := ParseDomainSchema(data)
		if err != nil {
			continue
		}
		if schema.Workspace != workspaceID {
			continue
		}
		r.mu.Lock()
		r.schemas[workspaceID] = *schema
		r.mu.Unlock()
		return schema, nil
	}

	return nil, fmt.Errorf("no schema file found for workspace %q in %s", workspaceID, r.schemasDir)
}

func (r *Registry) candidateFiles() ([]string, error) {
	entries, err := os.ReadDir(r.schemasDir)
	if err != nil {
		return nil, fmt.Errorf("reading schemas dir %s: %w", r.schemasDir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext == ".yaml" || ext == ".yml" {
			paths = append(paths, filepath.Join(r.schemasDir, e.Name()))
		}
	}
	return paths, nil
}
