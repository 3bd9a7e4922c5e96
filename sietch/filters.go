package sietch

import "sort"

// ComparisonOperator is the operator applied by a Condition
type ComparisonOperator string

const (
	OpEqual              ComparisonOperator = "="
	OpNotEqual           ComparisonOperator = "!="
	OpGreaterThan        ComparisonOperator = ">"
	OpLessThan           ComparisonOperator = "<"
	OpGreaterThanOrEqual ComparisonOperator = ">="
	OpLessThanOrEqual    ComparisonOperator = "<="
	OpIn                 ComparisonOperator = "IN"
	OpNotIn              ComparisonOperator = "NOT IN"
	OpIsNull             ComparisonOperator = "IS NULL"
	OpIsNotNull          ComparisonOperator = "IS NOT NULL"
	OpLike               ComparisonOperator = "LIKE"
)

// SortDirection defines the ordering of a sort field
type SortDirection string

const (
	SortAsc  SortDirection = "ASC"
	SortDesc SortDirection = "DESC"
)

// Condition represents a condition to filter queries
type Condition struct {
	Field    string
	Operator ComparisonOperator
	Value    any
}

// SortField orders results by a column
type SortField struct {
	Field     string
	Direction SortDirection
}

// Filter groups a set of AND-ed conditions plus ordering and paging
type Filter struct {
	Conditions []Condition
	Sort       []SortField
	Limit      *int
	Offset     *int
}

// Clone returns a deep copy of the filter. A nil filter clones to an empty one.
func (f *Filter) Clone() *Filter {
	out := &Filter{}
	if f == nil {
		return out
	}
	out.Conditions = append([]Condition(nil), f.Conditions...)
	out.Sort = append([]SortField(nil), f.Sort...)
	if f.Limit != nil {
		l := *f.Limit
		out.Limit = &l
	}
	if f.Offset != nil {
		o := *f.Offset
		out.Offset = &o
	}
	return out
}

// And returns a copy of the filter with the given conditions appended
func (f *Filter) And(conds ...Condition) *Filter {
	out := f.Clone()
	out.Conditions = append(out.Conditions, conds...)
	return out
}

// Predicate returns a copy without ordering and paging, the part a set-based
// mutation is evaluated against
func (f *Filter) Predicate() *Filter {
	out := f.Clone()
	out.Sort = nil
	out.Limit = nil
	out.Offset = nil
	return out
}

// IsEmpty reports whether the filter matches every row
func (f *Filter) IsEmpty() bool {
	return f == nil || len(f.Conditions) == 0
}

// FilterBuilder builds filters fluently
type FilterBuilder struct {
	conditions []Condition
	sort       []SortField
	limit      *int
	offset     *int
}

func NewFilter() *FilterBuilder {
	return &FilterBuilder{}
}

func (b *FilterBuilder) Where(field string, op ComparisonOperator, value any) *FilterBuilder {
	b.conditions = append(b.conditions, Condition{Field: field, Operator: op, Value: value})
	return b
}

func (b *FilterBuilder) OrderBy(field string, dir SortDirection) *FilterBuilder {
	b.sort = append(b.sort, SortField{Field: field, Direction: dir})
	return b
}

func (b *FilterBuilder) Limit(n int) *FilterBuilder {
	b.limit = &n
	return b
}

func (b *FilterBuilder) Offset(n int) *FilterBuilder {
	b.offset = &n
	return b
}

func (b *FilterBuilder) Build() *Filter {
	f := &Filter{
		Conditions: b.conditions,
		Sort:       b.sort,
		Limit:      b.limit,
		Offset:     b.offset,
	}
	return f.Clone()
}

// Assignments maps column names to the values a set-based update writes
type Assignments map[string]any

// Columns returns the assigned columns in a stable order
func (a Assignments) Columns() []string {
	cols := make([]string, 0, len(a))
	for c := range a {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}
