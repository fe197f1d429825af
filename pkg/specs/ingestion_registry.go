package specs

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// IngestionRegistry caches IngestionSpecs by spec_name, loading from a
// directory of *.yaml/*.yml files on first access. Separate from Registry
// since ingestion specs and domain schemas are keyed differently (spec_name
// vs workspace_id) and validated independently.
type IngestionRegistry struct {
	mu       sync.RWMutex
	specsDir string
	specs    map[string]IngestionSpec
}

// NewIngestionRegistry builds an IngestionRegistry rooted at specsDir.
func NewIngestionRegistry(specsDir string) *IngestionRegistry {
	return &IngestionRegistry{specsDir: specsDir, specs: make(map[string]IngestionSpec)}
}

// Get returns the cached spec for specName, loading it from disk on a
// cache miss.
func (r *IngestionRegistry) Get(specName string) (*IngestionSpec, error) {
	r.mu.RLock()
	if spec, ok := r.specs[specName]; ok {
		r.mu.RUnlock()
		return &spec, nil
	}
	r.mu.RUnlock()
	return r.loadFromDisk(specName)
}

func (r *IngestionRegistry) loadFromDisk(specName string) (*IngestionSpec, error) {
	entries, err := os.ReadDir(r.specsDir)
	if err != nil {
		return nil, fmt.Errorf("reading specs dir %s: %w", r.specsDir, err)
	}

	for _, e := range entries {
		if e.IsDir() || strings.HasPrefix(e.Name(), "_") {
			continue
		}
		ext := filepath.Ext(e.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		data, err := os.ReadFile(filepath.Join(r.specsDir, e.Name()))
		if err != nil {
			continue
		}
		spec, err := ParseIngestionSpec(data)
		if err != nil {
			continue
		}
		if spec.SpecName != specName {
			continue
		}
		r.mu.Lock()
		r.specs[specName] = *spec
		r.mu.Unlock()
		return spec, nil
	}

	return nil, fmt.Errorf("no ingestion spec file found for spec_name %q in %s", specName, r.specsDir)
}
