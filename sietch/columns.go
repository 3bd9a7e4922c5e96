package sietch

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"
	"time"
)

// column maps a db tag to the (possibly nested) struct field holding it
type column struct {
	name  string
	index []int
	typ   reflect.Type
}

var columnCache sync.Map // reflect.Type -> []column

var timeType = reflect.TypeOf(time.Time{})

// columnsOf returns the db-tagged columns of T in declaration order.
// Anonymous struct fields without a db tag are flattened, so a base model
// embedded in an entity contributes its columns first.
func columnsOf[T any]() ([]column, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	if typ == nil {
		return nil, fmt.Errorf("type must be a struct")
	}
	if typ.Kind() == reflect.Ptr {
		typ = typ.Elem()
	}
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("type must be a struct")
	}
	if cached, ok := columnCache.Load(typ); ok {
		return cached.([]column), nil
	}

	cols := collectColumns(typ, nil)
	if len(cols) == 0 {
		return nil, fmt.Errorf("no columns found")
	}
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, dup := seen[c.name]; dup {
			return nil, fmt.Errorf("duplicated column %q", c.name)
		}
		seen[c.name] = struct{}{}
	}

	columnCache.Store(typ, cols)
	return cols, nil
}

func collectColumns(typ reflect.Type, parent []int) []column {
	var cols []column
	for i := 0; i < typ.NumField(); i++ {
		field := typ.Field(i)
		index := append(append([]int(nil), parent...), i)
		tag := field.Tag.Get("db")
		if tag == "-" {
			continue
		}
		if tag == "" {
			if field.Anonymous && field.Type.Kind() == reflect.Struct && field.Type != timeType {
				cols = append(cols, collectColumns(field.Type, index)...)
			}
			continue
		}
		if !field.IsExported() {
			continue
		}
		cols = append(cols, column{name: tag, index: index, typ: field.Type})
	}
	return cols
}

func columnNames(cols []column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.name
	}
	return names
}

func findColumn(cols []column, name string) (column, bool) {
	for _, c := range cols {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

// assignValue writes v into field, converting between T and *T as needed.
// A nil value zeroes the field.
func assignValue(field reflect.Value, v any) error {
	if v == nil {
		field.Set(reflect.Zero(field.Type()))
		return nil
	}
	val := reflect.ValueOf(v)
	ft := field.Type()

	switch {
	case val.Type().AssignableTo(ft):
		field.Set(val)
	case ft.Kind() == reflect.Ptr && val.Type().AssignableTo(ft.Elem()):
		ptr := reflect.New(ft.Elem())
		ptr.Elem().Set(val)
		field.Set(ptr)
	case val.Kind() == reflect.Ptr && !val.IsNil() && val.Elem().Type().AssignableTo(ft):
		field.Set(val.Elem())
	case isNumericKind(val.Kind()) && isNumericKind(ft.Kind()):
		field.Set(val.Convert(ft))
	default:
		return fmt.Errorf("cannot assign %T to field of type %s", v, ft)
	}
	return nil
}

func isNumericKind(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// encodeRow serializes item as an object keyed by db column. Each value is
// marshalled on its own, so json tags on the entity never drop a column.
func encodeRow[T any](item *T) ([]byte, error) {
	cols, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}
	v := reflect.ValueOf(item).Elem()
	row := make(map[string]json.RawMessage, len(cols))
	for _, c := range cols {
		raw, err := json.Marshal(v.FieldByIndex(c.index).Interface())
		if err != nil {
			return nil, fmt.Errorf("encode column %s: %w", c.name, err)
		}
		row[c.name] = raw
	}
	return json.Marshal(row)
}

// decodeRow is the inverse of encodeRow. Unknown columns are ignored.
func decodeRow[T any](data []byte) (*T, error) {
	cols, err := columnsOf[T]()
	if err != nil {
		return nil, err
	}
	var row map[string]json.RawMessage
	if err := json.Unmarshal(data, &row); err != nil {
		return nil, err
	}
	var item T
	v := reflect.ValueOf(&item).Elem()
	for _, c := range cols {
		raw, ok := row[c.name]
		if !ok {
			continue
		}
		if err := json.Unmarshal(raw, v.FieldByIndex(c.index).Addr().Interface()); err != nil {
			return nil, fmt.Errorf("decode column %s: %w", c.name, err)
		}
	}
	return &item, nil
}
