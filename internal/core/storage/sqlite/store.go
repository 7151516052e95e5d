// Package sqlite provides a SQLite-backed object store: one objects table
// plus one table per component kind with a column per property axis.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/zeusync/openworld/internal/core/components"
	"github.com/zeusync/openworld/internal/core/properties"
	"github.com/zeusync/openworld/internal/core/storage"
	"github.com/zeusync/openworld/internal/core/systems/physics"
)

var _ storage.Store = (*Store)(nil)

// ErrSchemaConflict reports a schema whose kinds or properties do not map
// onto distinct tables and columns. SQLite compares identifiers without
// regard to case.
var ErrSchemaConflict = errors.New("schema does not map onto sqlite tables")

// Store persists objects in SQLite.
type Store struct {
	sqlDB   *sql.DB
	builder *components.Builder
}

// Open opens a SQLite object store and creates the tables of every kind in
// the builder's schema.
func Open(ctx context.Context, path string, builder *components.Builder) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := checkSchema(builder.Schema()); err != nil {
		return nil, err
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// a single connection keeps writes ordered
	sqlDB.SetMaxOpenConns(1)
	if err = sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}

	s := &Store{sqlDB: sqlDB, builder: builder}
	if err = s.migrate(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func checkSchema(schema *components.Schema) error {
	tables := map[string]string{"objects": "the objects table"}
	for _, kind := range schema.Kinds() {
		table := strings.ToLower(kind.Name())
		if owner, ok := tables[table]; ok {
			return fmt.Errorf("%w: kind %s clashes with %s", ErrSchemaConflict, kind.Name(), owner)
		}
		tables[table] = "kind " + kind.Name()

		columns := map[string]string{"id": "the id column"}
		for _, def := range kind.Definitions() {
			for _, col := range columnNames(def) {
				key := strings.ToLower(col)
				if owner, ok := columns[key]; ok {
					return fmt.Errorf("%w: %s.%s clashes with %s", ErrSchemaConflict, kind.Name(), def.Name(), owner)
				}
				columns[key] = "property " + def.Name()
			}
		}
	}
	return nil
}

func (s *Store) migrate(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS objects (id INTEGER PRIMARY KEY, type TEXT NOT NULL)`,
	}
	for _, kind := range s.builder.Schema().Kinds() {
		columns := []string{"id INTEGER PRIMARY KEY REFERENCES objects(id)"}
		for _, def := range kind.Definitions() {
			for _, col := range columnNames(def) {
				columns = append(columns, quote(col)+" "+columnType(def.Type()))
			}
		}
		statements = append(statements, fmt.Sprintf(
			"CREATE TABLE IF NOT EXISTS %s (%s)", quote(kind.Name()), strings.Join(columns, ", ")))
	}

	for _, stmt := range statements {
		if _, err := s.sqlDB.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) Retrieve(ctx context.Context, id components.ObjectID) (*components.Object, error) {
	return s.RetrieveByType(ctx, id, "")
}

// RetrieveByType loads object id, checking its type unless typ is empty.
// Kind rows that are missing leave the defaults in place.
func (s *Store) RetrieveByType(ctx context.Context, id components.ObjectID, typ string) (*components.Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var stored string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT type FROM objects WHERE id = ?`, int64(id)).Scan(&stored)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", storage.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get object %d: %w", id, err)
	}
	if typ != "" && stored != typ {
		return nil, fmt.Errorf("%w: %d is %s, not %s", storage.ErrTypeMismatch, id, stored, typ)
	}

	obj, err := s.builder.Build(id, stored)
	if err != nil {
		return nil, err
	}
	for _, c := range obj.Components() {
		if err = s.loadComponent(ctx, id, c); err != nil {
			return nil, err
		}
	}
	return obj, nil
}

func (s *Store) loadComponent(ctx context.Context, id components.ObjectID, c *components.Component) error {
	defs := c.Kind().Definitions()
	if len(defs) == 0 {
		return nil
	}

	var (
		columns []string
		targets []any
	)
	for _, def := range defs {
		for _, col := range columnNames(def) {
			columns = append(columns, quote(col))
			switch def.Type() {
			case properties.Boolean:
				targets = append(targets, new(string))
			case properties.Integer:
				targets = append(targets, new(int64))
			default:
				targets = append(targets, new(float64))
			}
		}
	}

	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", strings.Join(columns, ", "), quote(c.Kind().Name()))
	err := s.sqlDB.QueryRowContext(ctx, query, int64(id)).Scan(targets...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("get %s of object %d: %w", c.Kind().Name(), id, err)
	}

	next := 0
	for slot, def := range defs {
		width := def.Type().Columns()
		if err = c.SetAt(slot, scanValue(def.Type(), targets[next:next+width])); err != nil {
			return err
		}
		next += width
	}
	return nil
}

// Store writes the object row and every component row in one transaction.
func (s *Store) Store(ctx context.Context, id components.ObjectID, obj *components.Object) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `INSERT OR REPLACE INTO objects (id, type) VALUES (?, ?)`, int64(id), obj.Type()); err != nil {
		return fmt.Errorf("put object %d: %w", id, err)
	}

	for _, c := range obj.Components() {
		columns := []string{"id"}
		args := []any{int64(id)}
		for slot, def := range c.Kind().Definitions() {
			for _, col := range columnNames(def) {
				columns = append(columns, quote(col))
			}
			args = append(args, columnValues(c.At(slot))...)
		}
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
		stmt := fmt.Sprintf("INSERT OR REPLACE INTO %s (%s) VALUES (%s)",
			quote(c.Kind().Name()), strings.Join(columns, ", "), placeholders)
		if _, err = tx.ExecContext(ctx, stmt, args...); err != nil {
			return fmt.Errorf("put %s of object %d: %w", c.Kind().Name(), id, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit object %d: %w", id, err)
	}
	return nil
}

func (s *Store) List(ctx context.Context) ([]storage.Entry, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT id, type FROM objects ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list objects: %w", err)
	}
	defer rows.Close()

	var entries []storage.Entry
	for rows.Next() {
		var (
			id  int64
			typ string
		)
		if err = rows.Scan(&id, &typ); err != nil {
			return nil, fmt.Errorf("scan object: %w", err)
		}
		entries = append(entries, storage.Entry{ID: components.ObjectID(id), Type: typ})
	}
	return entries, rows.Err()
}

func quote(identifier string) string {
	return `"` + strings.ReplaceAll(identifier, `"`, `""`) + `"`
}

func columnType(typ properties.Type) string {
	switch typ {
	case properties.Boolean:
		return "TEXT NOT NULL"
	case properties.Integer:
		return "INTEGER NOT NULL"
	}
	return "REAL NOT NULL"
}

// columnNames splits vectors into _x/_y/_z and quaternions into
// _w/_x/_y/_z columns.
func columnNames(def *properties.Definition) []string {
	name := def.Name()
	switch def.Type() {
	case properties.Vector3, properties.UnitVector3:
		return []string{name + "_x", name + "_y", name + "_z"}
	case properties.Quaternion:
		return []string{name + "_w", name + "_x", name + "_y", name + "_z"}
	}
	return []string{name}
}

func columnValues(value any) []any {
	switch v := value.(type) {
	case bool:
		if v {
			return []any{"true"}
		}
		return []any{"false"}
	case physics.Vector:
		return []any{v.X, v.Y, v.Z}
	case physics.Quaternion:
		return []any{v.W, v.X, v.Y, v.Z}
	}
	return []any{value}
}

func scanValue(typ properties.Type, targets []any) any {
	switch typ {
	case properties.Boolean:
		return *targets[0].(*string) == "true"
	case properties.Integer:
		return *targets[0].(*int64)
	case properties.Float:
		return *targets[0].(*float64)
	case properties.Vector3, properties.UnitVector3:
		return physics.Vector{X: *targets[0].(*float64), Y: *targets[1].(*float64), Z: *targets[2].(*float64)}
	}
	return physics.Quaternion{W: *targets[0].(*float64), X: *targets[1].(*float64), Y: *targets[2].(*float64), Z: *targets[3].(*float64)}
}
