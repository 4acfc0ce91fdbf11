/*
Package evaluator provides a storage-less, in-process implementation of the
same document-collection contract the SQL-backed engine exposes: get,
get_many, has, put, put_many, delete, delete_many, clear, count, has_any,
list, find, query, and keys. It is used for tests and for embedding without
a SQL engine.

Unlike the SQL-backed engine, this implementation accepts empty-string ids
(there is no primary-key constraint to violate), and every read and write
deep-copies the stored document so callers can never mutate state through a
returned reference.
*/
package evaluator

import (
	"sort"
	"sync"
	"time"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/pkg/slice"
)

// Collection is an in-memory, mutex-serialized store of documents keyed by
// id. A Collection is safe for concurrent use: per spec, operations within
// one shard observe a total order consistent with submission order.
type Collection struct {
	mu   sync.Mutex
	rows map[string]*row
}

type row struct {
	doc       map[string]any
	createdAt int64
	updatedAt int64
}

// Item is a single (id, document) pair for PutMany.
type Item struct {
	ID  string
	Doc map[string]any
}

// New returns an empty Collection.
func New() *Collection {
	return &Collection{rows: make(map[string]*row)}
}

// Get returns a deep copy of the stored document and true, or (nil, false)
// if id is not present.
func (c *Collection) Get(id string) (map[string]any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	r, ok := c.rows[id]
	if !ok {
		return nil, false
	}
	return deepCopyObject(r.doc), true
}

// GetMany returns a slice the same length and order as ids; entries for
// absent ids are nil.
func (c *Collection) GetMany(ids []string) []map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()

	return slice.Map(ids, func(id string) map[string]any {
		if r, ok := c.rows[id]; ok {
			return deepCopyObject(r.doc)
		}
		return nil
	})
}

// Has reports whether id is present.
func (c *Collection) Has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	_, ok := c.rows[id]
	return ok
}

// Put validates doc, then inserts or overwrites the row for id. created_at
// is preserved across an overwrite; updated_at always advances to now.
func (c *Collection) Put(id string, doc map[string]any) error {
	if err := validate.Document(doc); err != nil {
		return err
	}

	now := time.Now().UnixMilli()
	cloned := deepCopyObject(doc)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.putLocked(id, cloned, now)
	return nil
}

func (c *Collection) putLocked(id string, doc map[string]any, now int64) {
	if existing, ok := c.rows[id]; ok {
		existing.doc = doc
		existing.updatedAt = now
		return
	}
	c.rows[id] = &row{doc: doc, createdAt: now, updatedAt: now}
}

// PutMany validates every item before writing any of them, then writes all
// of them under a single lock. It returns the count processed, or the
// first validation error.
func (c *Collection) PutMany(items []Item) (int, error) {
	for _, item := range items {
		if err := validate.Document(item.Doc); err != nil {
			return 0, err
		}
	}

	now := time.Now().UnixMilli()

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, item := range items {
		c.putLocked(item.ID, deepCopyObject(item.Doc), now)
	}
	return len(items), nil
}

// Delete removes id's row, reporting whether a row was actually removed.
func (c *Collection) Delete(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.rows[id]; !ok {
		return false
	}
	delete(c.rows, id)
	return true
}

// DeleteMany removes every id present, returning the count actually
// removed.
func (c *Collection) DeleteMany(ids []string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for _, id := range ids {
		if _, ok := c.rows[id]; ok {
			delete(c.rows, id)
			removed++
		}
	}
	return removed
}

// Clear removes every row, returning the count removed.
func (c *Collection) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.rows)
	c.rows = make(map[string]*row)
	return n
}

// Count returns the number of rows matching f (nil matches everything).
func (c *Collection) Count(f filter.Filter) (int, error) {
	docs, err := c.Find(f, validate.QueryOptions{})
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// HasAny reports whether any row matches f.
func (c *Collection) HasAny(f filter.Filter) (bool, error) {
	n, err := c.Count(f)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every document honoring opts. It is equivalent to
// Find(nil, opts).
func (c *Collection) List(opts validate.QueryOptions) ([]map[string]any, error) {
	return c.Find(nil, opts)
}

// Query is an alias for Find, kept distinct at the public surface because
// its filter argument is conceptually required rather than optional.
func (c *Collection) Query(f filter.Filter, opts validate.QueryOptions) ([]map[string]any, error) {
	return c.Find(f, opts)
}

// Find returns every document matching f (nil matches everything),
// honoring opts' sort, offset, and limit.
func (c *Collection) Find(f filter.Filter, opts validate.QueryOptions) ([]map[string]any, error) {
	if err := validate.ValidateQueryOptions(opts); err != nil {
		return nil, err
	}

	snapshot := c.snapshot()

	matched := make([]*row, 0, len(snapshot))
	for _, r := range snapshot {
		ok, err := Evaluate(f, r.doc)
		if err != nil {
			return nil, err
		}
		if ok {
			matched = append(matched, r)
		}
	}

	sortRows(matched, opts)
	matched = paginate(matched, opts)

	return slice.Map(matched, func(r *row) map[string]any {
		return deepCopyObject(r.doc)
	}), nil
}

// Keys returns every id currently present, sorted ascending.
func (c *Collection) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.rows))
	for id := range c.rows {
		keys = append(keys, id)
	}
	sort.Strings(keys)
	return keys
}

func (c *Collection) snapshot() []*row {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]*row, 0, len(c.rows))
	for _, r := range c.rows {
		// Copy the row so Find can read it after the lock is released while
		// putLocked updates the stored row in place.
		cp := *r
		out = append(out, &cp)
	}
	return out
}

func paginate(rows []*row, opts validate.QueryOptions) []*row {
	if opts.HasOffset() {
		offset := *opts.Offset
		if offset >= len(rows) {
			return nil
		}
		rows = rows[offset:]
	}
	if opts.HasLimit() {
		limit := *opts.Limit
		if limit < len(rows) {
			rows = rows[:limit]
		}
	}
	return rows
}

func deepCopyValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, vv := range val {
			out[k] = deepCopyValue(vv)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, vv := range val {
			out[i] = deepCopyValue(vv)
		}
		return out
	default:
		return val
	}
}

func deepCopyObject(m map[string]any) map[string]any {
	return deepCopyValue(m).(map[string]any)
}
