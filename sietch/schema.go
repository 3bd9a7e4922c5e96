package sietch

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// ColumnType represents SQL column data types
type ColumnType string

const (
	ColumnTypeInteger   ColumnType = "INTEGER"
	ColumnTypeBigInt    ColumnType = "BIGINT"
	ColumnTypeText      ColumnType = "TEXT"
	ColumnTypeBoolean   ColumnType = "BOOLEAN"
	ColumnTypeTimestamp ColumnType = "TIMESTAMPTZ"
	ColumnTypeJSON      ColumnType = "JSONB"
	ColumnTypeFloat     ColumnType = "FLOAT8"
)

// IndexType represents different types of database indexes
type IndexType string

const (
	IndexTypeBTree IndexType = "BTREE"
	IndexTypeHash  IndexType = "HASH"
	IndexTypeGin   IndexType = "GIN"
)

// ColumnDef defines a table column
type ColumnDef struct {
	Name         string
	Type         ColumnType
	PrimaryKey   bool
	NotNull      bool
	Unique       bool
	DefaultValue string
}

// IndexDef defines a table index
type IndexDef struct {
	Name    string
	Type    IndexType
	Columns []string
	Unique  bool
	Where   string // Partial index condition
}

// TableDef defines a complete table schema
type TableDef struct {
	Name    string
	Columns []ColumnDef
	Indexes []IndexDef
}

// Execer is the part of a pool or transaction schema statements need
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// InferTableDef infers a table definition from the db tags of T.
// The first column is the primary key and pointer fields are nullable.
// Struct tags `unique:"true"` and `default:"..."` refine a column.
func InferTableDef[T any](tableName string) (*TableDef, error) {
	if err := sanitizeIdentifier(tableName); err != nil {
		return nil, fmt.Errorf("invalid table name: %w", err)
	}
	cols, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}

	var zero T
	typ := reflect.TypeOf(zero)

	tableDef := &TableDef{Name: tableName}
	for i, col := range cols {
		if err := sanitizeIdentifier(col.name); err != nil {
			return nil, fmt.Errorf("invalid column name '%s': %w", col.name, err)
		}
		field := typ.FieldByIndex(col.index)
		tableDef.Columns = append(tableDef.Columns, ColumnDef{
			Name:         col.name,
			Type:         inferColumnType(col.typ),
			PrimaryKey:   i == 0,
			NotNull:      col.typ.Kind() != reflect.Ptr,
			Unique:       field.Tag.Get("unique") == "true",
			DefaultValue: field.Tag.Get("default"),
		})
	}

	return tableDef, nil
}

// inferColumnType maps Go types to SQL column types
func inferColumnType(t reflect.Type) ColumnType {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == timeType {
		return ColumnTypeTimestamp
	}

	switch t.Kind() {
	case reflect.Int, reflect.Int32, reflect.Int16, reflect.Int8:
		return ColumnTypeInteger
	case reflect.Int64, reflect.Uint32, reflect.Uint64:
		return ColumnTypeBigInt
	case reflect.Bool:
		return ColumnTypeBoolean
	case reflect.Float32, reflect.Float64:
		return ColumnTypeFloat
	case reflect.Map, reflect.Slice, reflect.Struct:
		return ColumnTypeJSON
	default:
		return ColumnTypeText
	}
}

// GenerateCreateTableSQL generates CREATE TABLE SQL from table definition
func GenerateCreateTableSQL(def *TableDef) string {
	parts := make([]string, 0, len(def.Columns))

	for _, col := range def.Columns {
		colDef := fmt.Sprintf(`"%s" %s`, col.Name, col.Type)

		if col.PrimaryKey {
			colDef += " PRIMARY KEY"
		}
		if col.NotNull && !col.PrimaryKey {
			colDef += " NOT NULL"
		}
		if col.Unique && !col.PrimaryKey {
			colDef += " UNIQUE"
		}
		if col.DefaultValue != "" {
			colDef += " DEFAULT " + col.DefaultValue
		}

		parts = append(parts, colDef)
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS \"%s\" (\n  %s\n)",
		def.Name,
		strings.Join(parts, ",\n  "),
	)
}

// GenerateDropTableSQL generates DROP TABLE SQL
func GenerateDropTableSQL(tableName string) string {
	return fmt.Sprintf("DROP TABLE IF EXISTS \"%s\" CASCADE", tableName)
}

// GenerateCreateIndexSQL generates CREATE INDEX SQL from index definition
func GenerateCreateIndexSQL(tableName string, idx *IndexDef) string {
	uniqueClause := ""
	if idx.Unique {
		uniqueClause = "UNIQUE "
	}
	indexType := idx.Type
	if indexType == "" {
		indexType = IndexTypeBTree
	}

	sql := fmt.Sprintf("CREATE %sINDEX IF NOT EXISTS \"%s\" ON \"%s\" USING %s (%s)",
		uniqueClause,
		idx.Name,
		tableName,
		indexType,
		joinQuotedColumns(idx.Columns),
	)

	if idx.Where != "" {
		sql += " WHERE " + idx.Where
	}

	return sql
}

// CreateTable creates the table and then every index of the definition
func CreateTable(ctx context.Context, db Execer, def *TableDef) error {
	if _, err := db.Exec(ctx, GenerateCreateTableSQL(def)); err != nil {
		return fmt.Errorf("create table %s: %w", def.Name, err)
	}
	for i := range def.Indexes {
		if _, err := db.Exec(ctx, GenerateCreateIndexSQL(def.Name, &def.Indexes[i])); err != nil {
			return fmt.Errorf("create index %s: %w", def.Indexes[i].Name, err)
		}
	}
	return nil
}

// DropTable drops a table if it exists
func DropTable(ctx context.Context, db Execer, tableName string) error {
	_, err := db.Exec(ctx, GenerateDropTableSQL(tableName))
	return err
}

// GenerateTruncateTableSQL generates TRUNCATE TABLE SQL
func GenerateTruncateTableSQL(tableName string) string {
	return fmt.Sprintf("TRUNCATE TABLE \"%s\" CASCADE", tableName)
}

// TruncateTable removes all rows from a table
func TruncateTable(ctx context.Context, db Execer, tableName string) error {
	_, err := db.Exec(ctx, GenerateTruncateTableSQL(tableName))
	return err
}
