package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/relaydb/collections/internal/platform/dberr"
	"github.com/relaydb/collections/internal/store/schema"
)

// Manager owns one storage handle and caches [Collection] instances by
// name so repeated lookups of the same name return the same instance.
type Manager struct {
	handle *Handle

	mu          sync.Mutex
	collections map[string]*Collection
}

// NewManager returns a Manager over an already-open handle.
func NewManager(handle *Handle) *Manager {
	return &Manager{
		handle:      handle,
		collections: make(map[string]*Collection),
	}
}

// Collection returns the cached Collection for name, constructing it (and
// bootstrapping the handle's schema, if this is the first call for any
// name) on first request.
func (m *Manager) Collection(ctx context.Context, name string) (*Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.collections[name]; ok {
		return c, nil
	}

	c, err := NewCollection(ctx, m.handle, name)
	if err != nil {
		return nil, err
	}
	m.collections[name] = c
	return c, nil
}

// Names returns the sorted list of distinct collection names that
// currently have at least one row.
func (m *Manager) Names(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT DISTINCT %s FROM %s ORDER BY %s ASC`,
		schema.ColCollection, schema.CollectionsTable, schema.ColCollection)

	rows, err := m.handle.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "names")
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, dberr.Wrap(err, "names")
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Drop removes every row for name, evicts its cache entry, and returns the
// count of rows removed. An unknown collection returns 0, not an error.
func (m *Manager) Drop(ctx context.Context, name string) (int, error) {
	c, err := m.Collection(ctx, name)
	if err != nil {
		return 0, err
	}

	n, err := c.Clear(ctx)
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	delete(m.collections, name)
	m.mu.Unlock()

	return n, nil
}

// Stat is one row of [Manager.Stats]: a collection's document count and
// the combined byte length of its stored JSON text.
type Stat struct {
	Name  string
	Count int
	Size  int64
}

// Stats returns, for every collection present, its document count and
// total data size, ordered by name.
func (m *Manager) Stats(ctx context.Context) ([]Stat, error) {
	query := fmt.Sprintf(`SELECT %s, COUNT(*), SUM(LENGTH(%s)) FROM %s GROUP BY %s ORDER BY %s ASC`,
		schema.ColCollection, schema.ColData, schema.CollectionsTable, schema.ColCollection, schema.ColCollection)

	rows, err := m.handle.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, dberr.Wrap(err, "stats")
	}
	defer rows.Close()

	var stats []Stat
	for rows.Next() {
		var s Stat
		if err := rows.Scan(&s.Name, &s.Count, &s.Size); err != nil {
			return nil, dberr.Wrap(err, "stats")
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}
