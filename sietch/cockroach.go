package sietch

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// uniqueViolation is the SQLSTATE returned for duplicate keys
const uniqueViolation = "23505"

// CockroachDBConnector CockroachDB (Postgres wire) implementation of the Store
// interface. The first db-tagged column is the primary key.
type CockroachDBConnector[T any, ID comparable] struct {
	pool      *pgxpool.Pool
	tableName string
	getID     func(*T) ID
	columns   []string
	fields    []column
	logger    QueryLogger
}

func NewCockroachDBConnPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return pgxpool.New(ctx, dsn)
}

func sanitizeIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	// letters, digits and underscores only
	for _, r := range name {
		if !((r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') ||
			(r >= '0' && r <= '9') || r == '_') {
			return fmt.Errorf("invalid character in identifier: %c", r)
		}
	}
	return nil
}

func quoteIdentifier(name string) string {
	return `"` + name + `"`
}

func NewCockroachDBConnector[T any, ID comparable](pool *pgxpool.Pool, tableName string, getID func(*T) ID) (*CockroachDBConnector[T, ID], error) {
	if getID == nil {
		return nil, fmt.Errorf("getID function cannot be nil")
	}
	if err := sanitizeIdentifier(tableName); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}

	fields, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}

	columns := columnNames(fields)
	for _, col := range columns {
		if err := sanitizeIdentifier(col); err != nil {
			return nil, fmt.Errorf("invalid column name '%s': %w", col, err)
		}
	}

	return &CockroachDBConnector[T, ID]{
		pool:      pool,
		tableName: tableName,
		getID:     getID,
		columns:   columns,
		fields:    fields,
		logger:    NewNoOpLogger(),
	}, nil
}

// SetLogger sets the query logger for this connector
func (r *CockroachDBConnector[T, ID]) SetLogger(logger QueryLogger) {
	if logger != nil {
		r.logger = logger
	}
}

func (r *CockroachDBConnector[T, ID]) exec(ctx context.Context, operation, query string, args []any) (pgconn.CommandTag, error) {
	db, err := r.conn(ctx)
	if err != nil {
		return pgconn.CommandTag{}, err
	}
	start := time.Now()
	ct, err := db.Exec(ctx, query, args...)
	logQuery(r.logger, ctx, operation, query, args, start, err)
	return ct, err
}

func (r *CockroachDBConnector[T, ID]) scanOne(ctx context.Context, operation, query string, args []any, dest any) error {
	db, err := r.conn(ctx)
	if err != nil {
		return err
	}
	start := time.Now()
	err = db.QueryRow(ctx, query, args...).Scan(dest)
	logQuery(r.logger, ctx, operation, query, args, start, err)
	return err
}

// conn returns the transaction bound to ctx, or the pool
func (r *CockroachDBConnector[T, ID]) conn(ctx context.Context) (Queryable, error) {
	if tx, ok := getTxFromContext(ctx); ok {
		return tx, nil
	}
	if r.pool == nil {
		return nil, fmt.Errorf("pool cannot be nil")
	}
	return r.pool, nil
}

func joinQuotedColumns(columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = quoteIdentifier(col)
	}
	return strings.Join(quoted, ", ")
}

func buildPlaceholders(n int) string {
	placeholders := make([]string, n)
	for i := 0; i < n; i++ {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}
	return strings.Join(placeholders, ", ")
}

func (r *CockroachDBConnector[T, ID]) getValues(item *T) ([]any, error) {
	v := reflect.ValueOf(item)
	if v.Kind() == reflect.Ptr {
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("item must be a struct")
	}
	values := make([]any, len(r.fields))
	for i, f := range r.fields {
		values[i] = v.FieldByIndex(f.index).Interface()
	}
	return values, nil
}

func (r *CockroachDBConnector[T, ID]) getScanDestinations(ptr *T) ([]any, error) {
	v := reflect.ValueOf(ptr).Elem()
	if v.Kind() != reflect.Struct {
		return nil, fmt.Errorf("item must be a struct")
	}
	dests := make([]any, len(r.fields))
	for i, f := range r.fields {
		dests[i] = v.FieldByIndex(f.index).Addr().Interface()
	}
	return dests, nil
}

func (r *CockroachDBConnector[T, ID]) hasColumn(name string) bool {
	for _, c := range r.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (r *CockroachDBConnector[T, ID]) Insert(ctx context.Context, item *T) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	values, err := r.getValues(item)
	if err != nil {
		return err
	}

	_, err = r.exec(ctx, "insert", r.insertQuery(), values)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrItemAlreadyExists
	}
	return err
}

func (r *CockroachDBConnector[T, ID]) insertQuery() string {
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		quoteIdentifier(r.tableName),
		joinQuotedColumns(r.columns),
		buildPlaceholders(len(r.columns)),
	)
}

func (r *CockroachDBConnector[T, ID]) Update(ctx context.Context, item *T) error {
	if item == nil {
		return fmt.Errorf("item cannot be nil")
	}
	values, err := r.getValues(item)
	if err != nil {
		return err
	}

	args := append(values[1:], r.getID(item))
	ct, err := r.exec(ctx, "update", r.updateQuery(), args)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return ErrNoUpdateItem
	}
	return nil
}

func (r *CockroachDBConnector[T, ID]) updateQuery() string {
	var setClause []string
	numCols := len(r.columns)
	for i := 1; i < numCols; i++ {
		setClause = append(setClause, fmt.Sprintf("%s = $%d", quoteIdentifier(r.columns[i]), i))
	}

	return fmt.Sprintf("UPDATE %s SET %s WHERE %s = $%d",
		quoteIdentifier(r.tableName),
		strings.Join(setClause, ", "),
		quoteIdentifier(r.columns[0]),
		numCols,
	)
}

func (r *CockroachDBConnector[T, ID]) Find(ctx context.Context, filter *Filter) ([]T, error) {
	query, args, err := r.selectQuery(filter)
	if err != nil {
		return nil, err
	}
	db, err := r.conn(ctx)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := db.Query(ctx, query, args...)
	logQuery(r.logger, ctx, "find", query, args, start, err)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []T
	for rows.Next() {
		var item T
		dests, err := r.getScanDestinations(&item)
		if err != nil {
			return nil, err
		}
		if err := rows.Scan(dests...); err != nil {
			return nil, err
		}
		results = append(results, item)
	}

	return results, rows.Err()
}

func (r *CockroachDBConnector[T, ID]) Count(ctx context.Context, filter *Filter) (int64, error) {
	where, args, err := r.whereSuffix(filter, 1)
	if err != nil {
		return 0, err
	}

	query := "SELECT COUNT(*) FROM " + quoteIdentifier(r.tableName) + where
	var count int64
	err = r.scanOne(ctx, "count", query, args, &count)
	return count, err
}

func (r *CockroachDBConnector[T, ID]) Exists(ctx context.Context, filter *Filter) (bool, error) {
	where, args, err := r.whereSuffix(filter, 1)
	if err != nil {
		return false, err
	}

	query := fmt.Sprintf("SELECT EXISTS(SELECT 1 FROM %s%s)", quoteIdentifier(r.tableName), where)
	var exists bool
	err = r.scanOne(ctx, "exists", query, args, &exists)
	return exists, err
}

func (r *CockroachDBConnector[T, ID]) UpdateWhere(ctx context.Context, filter *Filter, set Assignments) (int64, error) {
	query, args, err := r.updateWhereQuery(filter, set)
	if err != nil {
		return 0, err
	}

	ct, err := r.exec(ctx, "update_where", query, args)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *CockroachDBConnector[T, ID]) DeleteWhere(ctx context.Context, filter *Filter) (int64, error) {
	where, args, err := r.whereSuffix(filter, 1)
	if err != nil {
		return 0, err
	}

	ct, err := r.exec(ctx, "delete_where", "DELETE FROM "+quoteIdentifier(r.tableName)+where, args)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}

func (r *CockroachDBConnector[T, ID]) selectQuery(filter *Filter) (string, []any, error) {
	where, args, err := r.whereSuffix(filter, 1)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("SELECT %s FROM %s%s",
		joinQuotedColumns(r.columns),
		quoteIdentifier(r.tableName),
		where,
	)

	if filter == nil {
		return query, args, nil
	}

	if len(filter.Sort) > 0 {
		order := make([]string, len(filter.Sort))
		for i, s := range filter.Sort {
			if !r.hasColumn(s.Field) {
				return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, s.Field)
			}
			dir := SortAsc
			if s.Direction == SortDesc {
				dir = SortDesc
			}
			order[i] = quoteIdentifier(s.Field) + " " + string(dir)
		}
		query += " ORDER BY " + strings.Join(order, ", ")
	}
	if filter.Limit != nil {
		args = append(args, *filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset != nil {
		args = append(args, *filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}
	return query, args, nil
}

func (r *CockroachDBConnector[T, ID]) updateWhereQuery(filter *Filter, set Assignments) (string, []any, error) {
	if len(set) == 0 {
		return "", nil, fmt.Errorf("no assignments")
	}

	cols := set.Columns()
	setClause := make([]string, len(cols))
	args := make([]any, 0, len(cols))
	for i, col := range cols {
		if !r.hasColumn(col) {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, col)
		}
		args = append(args, set[col])
		setClause[i] = fmt.Sprintf("%s = $%d", quoteIdentifier(col), i+1)
	}

	where, whereArgs, err := r.whereSuffix(filter, len(args)+1)
	if err != nil {
		return "", nil, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s%s",
		quoteIdentifier(r.tableName),
		strings.Join(setClause, ", "),
		where,
	)
	return query, append(args, whereArgs...), nil
}

// whereSuffix renders " WHERE ..." (or "") with placeholders starting at start
func (r *CockroachDBConnector[T, ID]) whereSuffix(filter *Filter, start int) (string, []any, error) {
	if filter.IsEmpty() {
		return "", nil, nil
	}
	argIndex := start
	clause, args, err := r.buildWhereClause(filter.Conditions, &argIndex)
	if err != nil {
		return "", nil, err
	}
	return " WHERE " + clause, args, nil
}

func (r *CockroachDBConnector[T, ID]) buildWhereClause(conditions []Condition, argIndex *int) (string, []any, error) {
	parts := make([]string, 0, len(conditions))
	var args []any

	for _, c := range conditions {
		if !r.hasColumn(c.Field) {
			return "", nil, fmt.Errorf("%w: %s", ErrUnknownColumn, c.Field)
		}
		col := quoteIdentifier(c.Field)

		switch c.Operator {
		case OpIsNull:
			parts = append(parts, col+" IS NULL")
		case OpIsNotNull:
			parts = append(parts, col+" IS NOT NULL")
		case OpEqual, OpNotEqual:
			if c.Value == nil {
				if c.Operator == OpEqual {
					parts = append(parts, col+" IS NULL")
				} else {
					parts = append(parts, col+" IS NOT NULL")
				}
				continue
			}
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, c.Operator, *argIndex))
			args = append(args, c.Value)
			*argIndex++
		case OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual, OpLike:
			parts = append(parts, fmt.Sprintf("%s %s $%d", col, c.Operator, *argIndex))
			args = append(args, c.Value)
			*argIndex++
		case OpIn:
			parts = append(parts, fmt.Sprintf("%s = ANY($%d)", col, *argIndex))
			args = append(args, c.Value)
			*argIndex++
		case OpNotIn:
			parts = append(parts, fmt.Sprintf("NOT (%s = ANY($%d))", col, *argIndex))
			args = append(args, c.Value)
			*argIndex++
		default:
			return "", nil, fmt.Errorf("%w: operator %q", ErrUnsupportedOperation, c.Operator)
		}
	}

	return strings.Join(parts, " AND "), args, nil
}
