// Package registry holds the immutable database registry: which tenant store
// lives where, which credentials reach it, and which store it syncs up to.
package registry

import (
	"fmt"
	"sort"
	"strings"

	"command_center_backend/platform/apperr"
	"command_center_backend/platform/config"
)

// Entry is one registered database as declared in configuration.
type Entry struct {
	Key             string
	DisplayName     string
	BaseURL         string
	ReadCredential  string
	WriteCredential string
	IsMaster        bool
	SyncTo          string
	PhoneRegion     string
}

type node struct {
	entry  Entry
	parent *node
}

// Registry is the parsed sync tree. It is safe for concurrent use because
// nothing mutates it after New returns.
type Registry struct {
	nodes  map[string]*node
	master *node
}

// New validates entries and links them into a tree that terminates at
// exactly one master. Any violation is a configuration error.
func New(entries []Entry) (*Registry, error) {
	if len(entries) == 0 {
		return nil, apperr.Configuration("registry has no databases").WithOp("registry.New")
	}

	nodes := make(map[string]*node, len(entries))
	for _, e := range entries {
		key := strings.TrimSpace(e.Key)
		if key == "" {
			return nil, apperr.Configuration("registry entry without key").WithOp("registry.New")
		}
		if _, dup := nodes[key]; dup {
			return nil, apperr.Configuration(fmt.Sprintf("duplicate registry key %q", key)).WithOp("registry.New")
		}
		e.Key = key
		e.SyncTo = strings.TrimSpace(e.SyncTo)
		nodes[key] = &node{entry: e}
	}

	var master *node
	for key, n := range nodes {
		if n.entry.SyncTo == "" {
			if master != nil {
				return nil, apperr.Configuration(fmt.Sprintf("multiple roots: %q and %q", master.entry.Key, key)).WithOp("registry.New")
			}
			if !n.entry.IsMaster {
				return nil, apperr.Configuration(fmt.Sprintf("root %q is not flagged as master", key)).WithOp("registry.New")
			}
			master = n
			continue
		}
		if n.entry.IsMaster {
			return nil, apperr.Configuration(fmt.Sprintf("master %q must not sync to %q", key, n.entry.SyncTo)).WithOp("registry.New")
		}
		parent, ok := nodes[n.entry.SyncTo]
		if !ok {
			return nil, apperr.Configuration(fmt.Sprintf("%q syncs to unknown database %q", key, n.entry.SyncTo)).WithOp("registry.New")
		}
		if parent == n {
			return nil, apperr.Configuration(fmt.Sprintf("%q syncs to itself", key)).WithOp("registry.New")
		}
		n.parent = parent
	}
	if master == nil {
		return nil, apperr.Configuration("registry has no master database").WithOp("registry.New")
	}

	// Every chain must reach the master in fewer hops than there are nodes.
	for key, n := range nodes {
		hops := 0
		for cur := n; cur != master; cur = cur.parent {
			hops++
			if hops > len(nodes) {
				return nil, apperr.Configuration(fmt.Sprintf("sync chain from %q contains a cycle", key)).WithOp("registry.New")
			}
		}
	}

	return &Registry{nodes: nodes, master: master}, nil
}

// FromConfig builds a registry from the tenants file.
func FromConfig(file *config.TenantsFile) (*Registry, error) {
	entries := make([]Entry, 0, len(file.Databases))
	for key, db := range file.Databases {
		entries = append(entries, Entry{
			Key:             key,
			DisplayName:     db.Name,
			BaseURL:         db.URL,
			ReadCredential:  db.AnonKey,
			WriteCredential: db.ServiceKey,
			IsMaster:        db.IsMaster,
			SyncTo:          db.SyncTo,
			PhoneRegion:     db.PhoneRegion,
		})
	}
	return New(entries)
}

// Lookup returns the entry registered under key.
func (r *Registry) Lookup(key string) (Entry, bool) {
	n, ok := r.nodes[key]
	if !ok {
		return Entry{}, false
	}
	return n.entry, true
}

// Parent returns the entry key syncs to. The master has no parent.
func (r *Registry) Parent(key string) (Entry, bool) {
	n, ok := r.nodes[key]
	if !ok || n.parent == nil {
		return Entry{}, false
	}
	return n.parent.entry, true
}

// Upline returns the ancestors of key, nearest first, ending at the master.
func (r *Registry) Upline(key string) []Entry {
	n, ok := r.nodes[key]
	if !ok {
		return nil
	}
	var chain []Entry
	for cur := n.parent; cur != nil; cur = cur.parent {
		chain = append(chain, cur.entry)
	}
	return chain
}

// Master returns the terminal database of every chain.
func (r *Registry) Master() Entry {
	return r.master.entry
}

// Keys returns every registered key in lexical order.
func (r *Registry) Keys() []string {
	keys := make([]string, 0, len(r.nodes))
	for key := range r.nodes {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
