package uplinesync

import (
	"context"
	"fmt"
	"sync"

	"command_center_backend/internal/postgrest"
)

// memStore mimics a PostgREST table store, including upsert on a conflict target.
type memStore struct {
	mu        sync.Mutex
	name      string
	tables    map[string][]postgrest.Row
	nextID    int
	upsertErr error
	insertErr error
	selectErr error
	upserts   int
	updates   []postgrest.Row
}

func newMemStore(name string) *memStore {
	return &memStore{name: name, tables: map[string][]postgrest.Row{}}
}

func (s *memStore) Insert(_ context.Context, table string, row postgrest.Row) (postgrest.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertErr != nil {
		return nil, s.insertErr
	}
	s.nextID++
	stored := row.Clone()
	stored["id"] = fmt.Sprintf("%s-%d", s.name, s.nextID)
	s.tables[table] = append(s.tables[table], stored)
	return stored.Clone(), nil
}

func (s *memStore) Upsert(_ context.Context, table string, row postgrest.Row, onConflict []string) ([]postgrest.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	if s.upsertErr != nil {
		return nil, s.upsertErr
	}

	for i, existing := range s.tables[table] {
		if sameKey(existing, row, onConflict) {
			merged := existing.Clone()
			for k, v := range row {
				merged[k] = v
			}
			s.tables[table][i] = merged
			return []postgrest.Row{merged.Clone()}, nil
		}
	}

	s.nextID++
	stored := row.Clone()
	stored["id"] = fmt.Sprintf("%s-%d", s.name, s.nextID)
	s.tables[table] = append(s.tables[table], stored)
	return []postgrest.Row{stored.Clone()}, nil
}

func (s *memStore) Update(_ context.Context, table, column string, value any, patch postgrest.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates = append(s.updates, patch)
	for i, existing := range s.tables[table] {
		if fmt.Sprint(existing[column]) == fmt.Sprint(value) {
			for k, v := range patch {
				existing[k] = v
			}
			s.tables[table][i] = existing
		}
	}
	return nil
}

func (s *memStore) Select(_ context.Context, table string, q postgrest.SelectQuery) ([]postgrest.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selectErr != nil {
		return nil, s.selectErr
	}
	rows := s.tables[table]
	if q.Limit > 0 && len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	out := make([]postgrest.Row, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *memStore) rows(table string) []postgrest.Row {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]postgrest.Row(nil), s.tables[table]...)
}

func sameKey(a, b postgrest.Row, cols []string) bool {
	for _, c := range cols {
		if fmt.Sprint(a[c]) != fmt.Sprint(b[c]) {
			return false
		}
	}
	return true
}

// memProvider hands out memStores; keys listed in unconfigured yield nil.
type memProvider struct {
	stores       map[string]*memStore
	unconfigured map[string]bool
}

func newMemProvider(keys ...string) *memProvider {
	p := &memProvider{stores: map[string]*memStore{}, unconfigured: map[string]bool{}}
	for _, k := range keys {
		p.stores[k] = newMemStore(k)
	}
	return p
}

func (p *memProvider) Store(key string, _ bool) postgrest.Store {
	if p.unconfigured[key] {
		return nil
	}
	s, ok := p.stores[key]
	if !ok {
		return nil
	}
	return s
}

type memLedger struct {
	mu   sync.Mutex
	runs []Run
}

func (l *memLedger) RecordRun(_ context.Context, run Run) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.runs = append(l.runs, run)
	return nil
}
