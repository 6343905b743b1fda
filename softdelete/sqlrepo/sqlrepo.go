/*
Copyright © 2024 The backendkit Authors.

Released under MIT license.
*/

// Package sqlrepo provides a PostgreSQL softdelete.Repository over database/sql with the pgx driver.
// Every repository method runs exactly one SQL statement.
package sqlrepo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/backendkit/go-backendkit/softdelete"
)

// Querier is satisfied by *sql.DB, *sql.Conn and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// Repository is a softdelete.Repository storing records of T in one table.
type Repository[T softdelete.Record] struct {
	db         Querier
	schema     Schema[T]
	columns    []Column[T]
	byName     map[string]Column[T]
	table      string
	selectList string
}

// New creates a new Repository.
func New[T softdelete.Record](db Querier, schema Schema[T]) *Repository[T] {
	columns := append(baseColumns[T](), schema.Columns...)
	byName := make(map[string]Column[T], len(columns))
	names := make([]string, 0, len(columns))
	for _, col := range columns {
		byName[col.Name] = col
		names = append(names, quote(col.Name))
	}
	return &Repository[T]{
		db:         db,
		schema:     schema,
		columns:    columns,
		byName:     byName,
		table:      quote(schema.Table),
		selectList: strings.Join(names, ", "),
	}
}

// Insert implements softdelete.Repository.
func (r *Repository[T]) Insert(ctx context.Context, rec T) error {
	args := make([]interface{}, 0, len(r.columns))
	placeholders := make([]string, 0, len(r.columns))
	for i, col := range r.columns {
		args = append(args, col.Value(rec))
		placeholders = append(placeholders, placeholder(i+1))
	}
	query := "INSERT INTO " + r.table + " (" + r.selectList + ") VALUES (" + strings.Join(placeholders, ", ") + ")"
	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert into %s: %w", r.schema.Table, err)
	}
	return nil
}

// Update implements softdelete.Repository.
func (r *Repository[T]) Update(ctx context.Context, rec T, fields []string) error {
	if fields == nil {
		for _, col := range r.columns {
			switch col.Name {
			case softdelete.FieldID, softdelete.FieldCreatedAt, softdelete.FieldCreatedBy:
			default:
				fields = append(fields, col.Name)
			}
		}
	}
	if len(fields) == 0 {
		return nil
	}

	sets := make([]string, 0, len(fields))
	args := make([]interface{}, 0, len(fields)+1)
	for _, f := range fields {
		col, ok := r.byName[f]
		if !ok {
			return fmt.Errorf("%w: %s", softdelete.ErrUnknownField, f)
		}
		args = append(args, col.Value(rec))
		sets = append(sets, quote(f)+" = "+placeholder(len(args)))
	}
	id := rec.SoftDeleteModel().ID
	args = append(args, id)
	query := "UPDATE " + r.table + " SET " + strings.Join(sets, ", ") + " WHERE " + quote(softdelete.FieldID) + " = " + placeholder(len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s: %w", r.schema.Table, err)
	}
	return checkAffected(res, id)
}

// Get implements softdelete.Repository.
func (r *Repository[T]) Get(ctx context.Context, id uuid.UUID, scope softdelete.Scope) (T, error) {
	var zero T
	where, args, err := r.where(softdelete.Filter{Scope: scope, Field: softdelete.FieldID, Value: id})
	if err != nil {
		return zero, err
	}
	rec := r.schema.New()
	row := r.db.QueryRowContext(ctx, "SELECT "+r.selectList+" FROM "+r.table+where, args...)
	if err = row.Scan(r.targets(rec)...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return zero, fmt.Errorf("%w: %s", softdelete.ErrNotFound, id)
		}
		return zero, fmt.Errorf("select from %s: %w", r.schema.Table, err)
	}
	return rec, nil
}

// List implements softdelete.Repository.
func (r *Repository[T]) List(ctx context.Context, filter softdelete.Filter) ([]T, error) {
	where, args, err := r.where(filter)
	if err != nil {
		return nil, err
	}
	query := "SELECT " + r.selectList + " FROM " + r.table + where +
		" ORDER BY " + quote(softdelete.FieldCreatedAt) + " DESC, " + quote(softdelete.FieldID)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select from %s: %w", r.schema.Table, err)
	}
	defer func() { _ = rows.Close() }()

	var res []T
	for rows.Next() {
		rec := r.schema.New()
		if err = rows.Scan(r.targets(rec)...); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", r.schema.Table, err)
		}
		res = append(res, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("select from %s: %w", r.schema.Table, err)
	}
	return res, nil
}

// Exists implements softdelete.Repository.
func (r *Repository[T]) Exists(ctx context.Context, filter softdelete.Filter) (bool, error) {
	where, args, err := r.where(filter)
	if err != nil {
		return false, err
	}
	var exists bool
	if err = r.db.QueryRowContext(ctx, "SELECT EXISTS (SELECT 1 FROM "+r.table+where+")", args...).Scan(&exists); err != nil {
		return false, fmt.Errorf("select from %s: %w", r.schema.Table, err)
	}
	return exists, nil
}

// Remove implements softdelete.Repository.
func (r *Repository[T]) Remove(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+r.table+" WHERE "+quote(softdelete.FieldID)+" = $1", id)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", r.schema.Table, err)
	}
	return checkAffected(res, id)
}

// RemoveWhere implements softdelete.Repository.
func (r *Repository[T]) RemoveWhere(ctx context.Context, filter softdelete.Filter) (int, error) {
	where, args, err := r.where(filter)
	if err != nil {
		return 0, err
	}
	res, err := r.db.ExecContext(ctx, "DELETE FROM "+r.table+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", r.schema.Table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete from %s: %w", r.schema.Table, err)
	}
	return int(n), nil
}

func (r *Repository[T]) targets(rec T) []interface{} {
	res := make([]interface{}, 0, len(r.columns))
	for _, col := range r.columns {
		res = append(res, col.Target(rec))
	}
	return res
}

func (r *Repository[T]) where(filter softdelete.Filter) (string, []interface{}, error) {
	var conds []string
	var args []interface{}
	switch filter.Scope {
	case softdelete.ScopeActive:
		conds = append(conds, quote(softdelete.FieldIsDeleted)+" = FALSE")
	case softdelete.ScopeDeleted:
		conds = append(conds, quote(softdelete.FieldIsDeleted)+" = TRUE")
	}
	if filter.Field != "" {
		if _, ok := r.byName[filter.Field]; !ok {
			return "", nil, fmt.Errorf("%w: %s", softdelete.ErrUnknownField, filter.Field)
		}
		args = append(args, filter.Value)
		conds = append(conds, quote(filter.Field)+" = "+placeholder(len(args)))
	}
	if filter.ExcludeID != uuid.Nil {
		args = append(args, filter.ExcludeID)
		conds = append(conds, quote(softdelete.FieldID)+" <> "+placeholder(len(args)))
	}
	if len(conds) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

func checkAffected(res sql.Result, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", softdelete.ErrNotFound, id)
	}
	return nil
}

func quote(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

func placeholder(n int) string {
	return "$" + strconv.Itoa(n)
}
