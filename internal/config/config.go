package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"

	"go.yaml.in/yaml/v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

// DomainMap maps wildcard record names to their target IPs. It backs the
// /list command and is safe for concurrent use.
type DomainMap struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewDomainMap returns an empty DomainMap.
func NewDomainMap() *DomainMap {
	return &DomainMap{entries: make(map[string]string)}
}

// LoadDefaultDomainMap reads the domain map from the path specified by the
// DOMAIN_MAP_PATH environment variable, defaulting to
// "configs/domain-map.yaml". A missing default file yields an empty map.
func LoadDefaultDomainMap() (*DomainMap, error) {
	path := os.Getenv("DOMAIN_MAP_PATH")
	if path != "" {
		return LoadDomainMap(path)
	}
	dm, err := LoadDomainMap("configs/domain-map.yaml")
	if errors.Is(err, fs.ErrNotExist) {
		return NewDomainMap(), nil
	}
	return dm, err
}

// LoadDomainMap reads a YAML file mapping wildcard names to IPs.
func LoadDomainMap(path string) (*DomainMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain map file: %w", err)
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing domain map file: %w", err)
	}

	dm := NewDomainMap()
	for name, ip := range entries {
		dm.Set(name, ip)
	}
	return dm, nil
}

// Set records that name points to ip. Names are stored lower-cased without
// a trailing dot.
func (dm *DomainMap) Set(name, ip string) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	dm.mu.Lock()
	defer dm.mu.Unlock()
	dm.entries[name] = ip
}

// Lookup returns the IP recorded for name.
func (dm *DomainMap) Lookup(name string) (string, bool) {
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	ip, ok := dm.entries[name]
	return ip, ok
}

// Domains returns all configured names, sorted.
func (dm *DomainMap) Domains() []string {
	dm.mu.RLock()
	defer dm.mu.RUnlock()
	return sets.List(sets.KeySet(dm.entries))
}
