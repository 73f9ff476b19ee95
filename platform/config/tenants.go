package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// TenantsFile is the static tenant configuration: the database registry and
// the per-tenant routing tables. It is read once at startup.
type TenantsFile struct {
	Defaults  TenantDefaults          `yaml:"defaults"`
	Databases map[string]DatabaseSpec `yaml:"databases"`
	Routing   map[string]RoutingSpec  `yaml:"routing"`
}

// TenantDefaults holds values applied to every database entry that omits them.
type TenantDefaults struct {
	PhoneRegion string `yaml:"phoneRegion"`
}

// DatabaseSpec describes one tenant store and its upline pointer.
type DatabaseSpec struct {
	Name        string `yaml:"name"`
	URL         string `yaml:"url"`
	AnonKey     string `yaml:"anonKey"`
	ServiceKey  string `yaml:"serviceKey"`
	IsMaster    bool   `yaml:"isMaster"`
	SyncTo      string `yaml:"syncTo"`
	PhoneRegion string `yaml:"phoneRegion"`
}

// RoutingSpec holds the scoring weights and lead categories of a tenant.
type RoutingSpec struct {
	BusinessID string         `yaml:"businessId"`
	Weights    map[string]int `yaml:"weights"`
	Categories []CategorySpec `yaml:"categories"`
}

// CategorySpec is a lead category. Order in the file is significant.
type CategorySpec struct {
	Name     string   `yaml:"name"`
	MinScore int      `yaml:"minScore"`
	Tags     []string `yaml:"tags"`
	AssignTo string   `yaml:"assignTo"`
	Priority string   `yaml:"priority"`
}

// LoadTenants reads and parses the tenants file at path.
// ${VAR} references are expanded from the environment before parsing.
func LoadTenants(path string) (*TenantsFile, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read tenants file: %w", err)
	}
	return ParseTenants(raw, os.Getenv)
}

// ParseTenants parses tenants YAML, expanding ${VAR} references with lookup.
func ParseTenants(raw []byte, lookup func(string) string) (*TenantsFile, error) {
	expanded := os.Expand(string(raw), lookup)

	var file TenantsFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("parse tenants file: %w", err)
	}
	if len(file.Databases) == 0 {
		return nil, fmt.Errorf("tenants file declares no databases")
	}

	for key, db := range file.Databases {
		db.URL = strings.TrimRight(strings.TrimSpace(db.URL), "/")
		if db.PhoneRegion == "" {
			db.PhoneRegion = file.Defaults.PhoneRegion
		}
		if db.Name == "" {
			db.Name = key
		}
		file.Databases[key] = db
	}

	for tenant, rt := range file.Routing {
		for i, category := range rt.Categories {
			if strings.TrimSpace(category.Name) == "" {
				return nil, fmt.Errorf("routing %s: category %d has no name", tenant, i)
			}
		}
	}

	return &file, nil
}
