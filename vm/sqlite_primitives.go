package vm

import (
	"database/sql"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// ---------------------------------------------------------------------------
// SQLiteDB: embedded storage handle for scripts
// ---------------------------------------------------------------------------

// SQLiteDB is a native handle returned by sqlite_open.
type SQLiteDB struct {
	db   *sql.DB
	path string

	mu     sync.Mutex
	closed bool
}

func (d *SQLiteDB) TypeTag() string      { return "sqlite" }
func (d *SQLiteDB) ParentTags() []string { return nil }

// OpenSQLite opens (or creates) the database at path. ":memory:" gives a
// private in-memory database.
func OpenSQLite(path string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	// One connection, so an in-memory database is the same across calls.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	logger.Debugf("opened sqlite database %s", path)
	return &SQLiteDB{db: db, path: path}, nil
}

func (d *SQLiteDB) handle() (*sql.DB, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil, newFault(ResourceFault, nil, "sqlite database %s is closed", d.path)
	}
	return d.db, nil
}

// Exec runs a statement and returns the number of rows it affected.
func (d *SQLiteDB) Exec(query string, params ...any) (int64, error) {
	db, err := d.handle()
	if err != nil {
		return 0, err
	}
	res, err := db.Exec(query, params...)
	if err != nil {
		return 0, newFault(ResourceFault, err, "sqlite exec: %v", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// Query runs a query and returns one column-name keyed map per row.
func (d *SQLiteDB) Query(query string, params ...any) ([]map[string]any, error) {
	db, err := d.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.Query(query, params...)
	if err != nil {
		return nil, newFault(ResourceFault, err, "sqlite query: %v", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns: %w", err)
	}
	var out []map[string]any
	for rows.Next() {
		raw := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range raw {
			ptrs[i] = &raw[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		row := make(map[string]any, len(cols))
		for i, c := range cols {
			row[c] = sqlValue(raw[i])
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, newFault(ResourceFault, err, "sqlite query: %v", err)
	}
	return out, nil
}

// Close releases the database. Closing twice is a no-op.
func (d *SQLiteDB) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return nil
	}
	d.closed = true
	return d.db.Close()
}

func sqlValue(v any) Value {
	switch x := v.(type) {
	case nil:
		return nil
	case []byte:
		return string(x)
	case bool:
		return x
	case int64:
		return x
	case float64:
		return x
	case string:
		return x
	}
	return FromGo(v)
}

// sqlParam converts a script value into a driver argument.
func sqlParam(v Value) (any, error) {
	switch x := v.(type) {
	case nil, bool, int64, float64, string:
		return x, nil
	}
	return nil, newFault(BindingFault, ErrTypeMismatch, "cannot bind %s as a query parameter", TypeName(v))
}

func sqlStatement(name string, args []ArgValue) (string, []any, error) {
	vals, err := positional(name, args, 1, -1)
	if err != nil {
		return "", nil, err
	}
	query, err := stringArg(name, vals[0])
	if err != nil {
		return "", nil, err
	}
	params := make([]any, 0, len(vals)-1)
	for _, v := range vals[1:] {
		p, err := sqlParam(v)
		if err != nil {
			return "", nil, err
		}
		params = append(params, p)
	}
	return query, params, nil
}

func sqliteMethod(fn func(ctx *Context, d *SQLiteDB, args []ArgValue) (Value, error)) NativeMethod {
	return method("sqlite", fn)
}

func (vm *VM) registerSQLitePrimitives() {
	vm.builtin("sqlite_open", func(ctx *Context, args []ArgValue) (Value, error) {
		vals, err := positional("sqlite_open", args, 1, 1)
		if err != nil {
			return nil, err
		}
		path, err := stringArg("sqlite_open", vals[0])
		if err != nil {
			return nil, err
		}
		return OpenSQLite(path)
	})

	vm.global.ProvideAll("sqlite", MethodTable{
		"exec": sqliteMethod(func(ctx *Context, d *SQLiteDB, args []ArgValue) (Value, error) {
			query, params, err := sqlStatement("exec", args)
			if err != nil {
				return nil, err
			}
			return d.Exec(query, params...)
		}),
		"query": sqliteMethod(func(ctx *Context, d *SQLiteDB, args []ArgValue) (Value, error) {
			query, params, err := sqlStatement("query", args)
			if err != nil {
				return nil, err
			}
			rows, err := d.Query(query, params...)
			if err != nil {
				return nil, err
			}
			out := NewList()
			for _, row := range rows {
				obj, err := FromTree(ctx, row)
				if err != nil {
					return nil, err
				}
				out.Append(obj)
			}
			return out, nil
		}),
		"close": sqliteMethod(func(ctx *Context, d *SQLiteDB, args []ArgValue) (Value, error) {
			return nil, d.Close()
		}),
	})
}
