package source

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// Registry keeps data sources in display order.
type Registry struct {
	mu      sync.RWMutex
	sources []Source
	byKey   map[string]Source
}

func NewRegistry(sources ...Source) (*Registry, error) {
	r := &Registry{byKey: make(map[string]Source)}
	for _, s := range sources {
		if err := r.Register(s); err != nil {
			return nil, err
		}
	}
	return r, nil
}

func (r *Registry) Register(s Source) error {
	key := strings.TrimSpace(s.Key())
	if key == "" {
		return fmt.Errorf("register source %q: empty key", s.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byKey[key]; ok {
		return fmt.Errorf("register source: duplicate key %q", key)
	}
	r.sources = append(r.sources, s)
	r.byKey[key] = s
	return nil
}

func (r *Registry) Get(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.byKey[key]
	return s, ok
}

func (r *Registry) All() []Source {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]Source(nil), r.sources...)
}

// Fetchers returns the sources that load characters at startup.
func (r *Registry) Fetchers() []Fetcher {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []Fetcher
	for _, s := range r.sources {
		if f, ok := s.(Fetcher); ok {
			out = append(out, f)
		}
	}
	return out
}

type definitionsFile struct {
	Sources []Definition `yaml:"sources"`
}

// LoadDefinitions reads source definitions from a YAML file. Relative file
// paths are resolved against the directory of the YAML file.
func LoadDefinitions(path string) ([]Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read source definitions: %w", err)
	}

	var f definitionsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse source definitions %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	for i := range f.Sources {
		d := &f.Sources[i]
		d.Key = strings.TrimSpace(d.Key)
		if d.Name == "" {
			d.Name = d.Key
		}
		if d.File != "" && !filepath.IsAbs(d.File) {
			d.File = filepath.Join(dir, d.File)
		}
	}
	return f.Sources, nil
}

// LoadRegistry builds a registry holding one TagSource per definition.
func LoadRegistry(path string, client *http.Client) (*Registry, error) {
	defs, err := LoadDefinitions(path)
	if err != nil {
		return nil, err
	}

	reg, _ := NewRegistry()
	for _, d := range defs {
		s := NewTagSource(d)
		if client != nil {
			s.Client = client
		}
		if err := reg.Register(s); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
