/*
Package store is the SQL-backed collection engine: it binds one collection
name to one storage [Handle] and implements every document operation
against SQLite, compiling filters via
[github.com/relaydb/collections/internal/filter] and issuing only
parameterized SQL — collection names included, per the injection-safety
rule that names are data, never identifiers.
*/
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/relaydb/collections/internal/filter"
	"github.com/relaydb/collections/internal/platform/dberr"
	"github.com/relaydb/collections/internal/platform/validate"
	"github.com/relaydb/collections/internal/store/schema"
)

// Collection binds a single collection name to a storage handle.
type Collection struct {
	handle *Handle
	name   string
}

// NewCollection bootstraps the handle's schema (a no-op after the first
// call for a given handle) and returns a Collection bound to name.
func NewCollection(ctx context.Context, h *Handle, name string) (*Collection, error) {
	if err := ensureSchema(ctx, h); err != nil {
		return nil, err
	}
	return &Collection{handle: h, name: name}, nil
}

// Get returns the stored document and true, or (nil, false, nil) if id is
// absent.
func (c *Collection) Get(ctx context.Context, id string) (map[string]any, bool, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? AND %s = ?`,
		schema.ColData, schema.CollectionsTable, schema.ColCollection, schema.ColID)

	var data string
	err := c.handle.DB.QueryRowContext(ctx, query, c.name, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, dberr.Wrap(err, "get")
	}

	doc, err := decodeDocument(data)
	if err != nil {
		return nil, false, err
	}
	return doc, true, nil
}

// GetMany returns a slice the same length and order as ids, executing a
// single IN (...) query; entries for absent ids are nil.
func (c *Collection) GetMany(ctx context.Context, ids []string) ([]map[string]any, error) {
	out := make([]map[string]any, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	placeholders, args := inClause(ids)
	args = append([]any{c.name}, args...)

	query := fmt.Sprintf(`SELECT %s, %s FROM %s WHERE %s = ? AND %s IN (%s)`,
		schema.ColID, schema.ColData, schema.CollectionsTable, schema.ColCollection, schema.ColID, placeholders)

	rows, err := c.handle.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, dberr.Wrap(err, "get_many")
	}
	defer rows.Close()

	byID := make(map[string]map[string]any, len(ids))
	for rows.Next() {
		var id, data string
		if err := rows.Scan(&id, &data); err != nil {
			return nil, dberr.Wrap(err, "get_many")
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		byID[id] = doc
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "get_many")
	}

	for i, id := range ids {
		out[i] = byID[id]
	}
	return out, nil
}

// Has reports whether id is present.
func (c *Collection) Has(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = ? AND %s = ? LIMIT 1`,
		schema.CollectionsTable, schema.ColCollection, schema.ColID)

	var one int
	err := c.handle.DB.QueryRowContext(ctx, query, c.name, id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, dberr.Wrap(err, "has")
	}
	return true, nil
}

// Put validates id and doc, then inserts or overwrites the row. created_at
// is preserved across an overwrite via ON CONFLICT DO UPDATE; updated_at
// always advances to the current wall-clock time.
func (c *Collection) Put(ctx context.Context, id string, doc map[string]any) error {
	if err := validate.DocumentID(id); err != nil {
		return err
	}
	if err := validate.Document(doc); err != nil {
		return err
	}

	encoded, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: encode document: %w", err)
	}

	return c.upsert(ctx, id, encoded)
}

func (c *Collection) upsert(ctx context.Context, id string, encoded []byte) error {
	now := time.Now().UnixMilli()

	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(%s, %s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s`,
		schema.CollectionsTable, schema.ColCollection, schema.ColID, schema.ColData, schema.ColCreatedAt, schema.ColUpdatedAt,
		schema.ColCollection, schema.ColID,
		schema.ColData, schema.ColData,
		schema.ColUpdatedAt, schema.ColUpdatedAt,
	)

	if _, err := c.handle.DB.ExecContext(ctx, query, c.name, id, string(encoded), now, now); err != nil {
		return dberr.Wrap(err, "put")
	}
	return nil
}

// Item is a single (id, document) pair for PutMany.
type Item struct {
	ID  string
	Doc map[string]any
}

// PutMany validates every item before writing any of them, then writes all
// of them inside one transaction.
func (c *Collection) PutMany(ctx context.Context, items []Item) (int, error) {
	encoded := make([][]byte, len(items))
	for i, item := range items {
		if err := validate.DocumentID(item.ID); err != nil {
			return 0, err
		}
		if err := validate.Document(item.Doc); err != nil {
			return 0, err
		}
		data, err := json.Marshal(item.Doc)
		if err != nil {
			return 0, fmt.Errorf("store: encode document: %w", err)
		}
		encoded[i] = data
	}

	tx, err := c.handle.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, dberr.Wrap(err, "put_many")
	}
	defer tx.Rollback()

	now := time.Now().UnixMilli()
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(%s, %s) DO UPDATE SET %s = excluded.%s, %s = excluded.%s`,
		schema.CollectionsTable, schema.ColCollection, schema.ColID, schema.ColData, schema.ColCreatedAt, schema.ColUpdatedAt,
		schema.ColCollection, schema.ColID,
		schema.ColData, schema.ColData,
		schema.ColUpdatedAt, schema.ColUpdatedAt,
	)

	for i, item := range items {
		if _, err := tx.ExecContext(ctx, query, c.name, item.ID, string(encoded[i]), now, now); err != nil {
			return 0, dberr.Wrap(err, "put_many")
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, dberr.Wrap(err, "put_many")
	}
	return len(items), nil
}

// Delete removes id's row, reporting whether a row was actually removed.
func (c *Collection) Delete(ctx context.Context, id string) (bool, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s = ?`,
		schema.CollectionsTable, schema.ColCollection, schema.ColID)

	res, err := c.handle.DB.ExecContext(ctx, query, c.name, id)
	if err != nil {
		return false, dberr.Wrap(err, "delete")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, dberr.Wrap(err, "delete")
	}
	return n > 0, nil
}

// DeleteMany removes every id present, in a single IN (...) query,
// returning the count actually removed.
func (c *Collection) DeleteMany(ctx context.Context, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders, args := inClause(ids)
	args = append([]any{c.name}, args...)

	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s IN (%s)`,
		schema.CollectionsTable, schema.ColCollection, schema.ColID, placeholders)

	res, err := c.handle.DB.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, dberr.Wrap(err, "delete_many")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dberr.Wrap(err, "delete_many")
	}
	return int(n), nil
}

// Clear removes every row in the collection, returning the count removed.
func (c *Collection) Clear(ctx context.Context) (int, error) {
	query := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, schema.CollectionsTable, schema.ColCollection)

	res, err := c.handle.DB.ExecContext(ctx, query, c.name)
	if err != nil {
		return 0, dberr.Wrap(err, "clear")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, dberr.Wrap(err, "clear")
	}
	return int(n), nil
}

// Count returns the exact number of rows matching f (nil matches every row
// in the collection) via SQL COUNT(*), never via materializing Find.
func (c *Collection) Count(ctx context.Context, f filter.Filter) (int, error) {
	whereFrag, params, err := filter.Compile(f)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s = ? AND (%s)`,
		schema.CollectionsTable, schema.ColCollection, whereFrag)

	args := append([]any{c.name}, params...)

	var count int
	if err := c.handle.DB.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, dberr.Wrap(err, "count")
	}
	return count, nil
}

// HasAny reports whether any row matches f.
func (c *Collection) HasAny(ctx context.Context, f filter.Filter) (bool, error) {
	n, err := c.Count(ctx, f)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List returns every document honoring opts. It is equivalent to
// Find(ctx, nil, opts).
func (c *Collection) List(ctx context.Context, opts validate.QueryOptions) ([]map[string]any, error) {
	return c.Find(ctx, nil, opts)
}

// Query is an alias for Find, kept distinct at the public surface because
// its filter argument is conceptually required rather than optional.
func (c *Collection) Query(ctx context.Context, f filter.Filter, opts validate.QueryOptions) ([]map[string]any, error) {
	return c.Find(ctx, f, opts)
}

// Find returns every document matching f (nil matches everything),
// honoring opts' sort, offset, and limit.
func (c *Collection) Find(ctx context.Context, f filter.Filter, opts validate.QueryOptions) ([]map[string]any, error) {
	if err := validate.ValidateQueryOptions(opts); err != nil {
		return nil, err
	}

	whereFrag, params, err := filter.Compile(f)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, `SELECT %s FROM %s WHERE %s = ? AND (%s)`,
		schema.ColData, schema.CollectionsTable, schema.ColCollection, whereFrag)

	args := append([]any{c.name}, params...)

	if opts.HasSort() {
		field, desc := opts.SortField()
		if err := validate.FieldName(field); err != nil {
			return nil, err
		}
		direction := "ASC"
		if desc {
			direction = "DESC"
		}
		fmt.Fprintf(&b, " ORDER BY json_extract(data,'$.%s') %s", field, direction)
	} else {
		fmt.Fprintf(&b, " ORDER BY %s DESC", schema.ColUpdatedAt)
	}

	if opts.HasLimit() {
		b.WriteString(" LIMIT ?")
		args = append(args, *opts.Limit)
		if opts.HasOffset() {
			b.WriteString(" OFFSET ?")
			args = append(args, *opts.Offset)
		}
	}

	rows, err := c.handle.DB.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, dberr.Wrap(err, "find")
	}
	defer rows.Close()

	var out []map[string]any
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, dberr.Wrap(err, "find")
		}
		doc, err := decodeDocument(data)
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "find")
	}
	return out, nil
}

// Keys returns every id currently present, sorted ascending.
func (c *Collection) Keys(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ? ORDER BY %s ASC`,
		schema.ColID, schema.CollectionsTable, schema.ColCollection, schema.ColID)

	rows, err := c.handle.DB.QueryContext(ctx, query, c.name)
	if err != nil {
		return nil, dberr.Wrap(err, "keys")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, dberr.Wrap(err, "keys")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func decodeDocument(data string) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal([]byte(data), &doc); err != nil {
		return nil, fmt.Errorf("store: decode document: %w", err)
	}
	return doc, nil
}

func inClause(ids []string) (placeholders string, args []any) {
	ph := make([]string, len(ids))
	args = make([]any, len(ids))
	for i, id := range ids {
		ph[i] = "?"
		args[i] = id
	}
	return strings.Join(ph, ", "), args
}
