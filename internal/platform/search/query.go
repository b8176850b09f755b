package search

import (
	"fmt"
	"strings"
)

// Query builds a filtered, optionally joined and grouped SELECT together with
// the matching COUNT query. Predicates are ANDed; placeholders are numbered in
// the order they are added.
type Query struct {
	from    string
	cols    string
	joins   []string
	where   string
	args    []interface{}
	idx     int
	groupBy string
	orderBy string
}

// New creates a Query selecting cols from the given FROM expression
// (for example "patient p").
func New(from, cols string) *Query {
	return &Query{
		from: from,
		cols: cols,
		idx:  1,
	}
}

// Idx returns the next available parameter index.
func (q *Query) Idx() int { return q.idx }

// Add appends a raw WHERE clause fragment (without leading "AND").
func (q *Query) Add(clause string, args ...interface{}) {
	q.where += " AND " + clause
	q.args = append(q.args, args...)
	q.idx += len(args)
}

// AddEquals adds "column = $n".
func (q *Query) AddEquals(column string, value interface{}) {
	q.Add(fmt.Sprintf("%s = $%d", column, q.idx), value)
}

// AddContains adds a case-insensitive substring match. LIKE wildcards in
// value are matched literally.
func (q *Query) AddContains(column, value string) {
	q.Add(fmt.Sprintf("%s ILIKE $%d", column, q.idx), "%"+EscapeLike(value)+"%")
}

// AddTextEquals compares the column's text rendering with value, so a date
// column matches "2000-01-15" exactly and nothing else.
func (q *Query) AddTextEquals(column, value string) {
	q.Add(fmt.Sprintf("%s::text = $%d", column, q.idx), value)
}

// AddColumn appends a select expression to the data query.
func (q *Query) AddColumn(expr string) {
	q.cols += ", " + expr
}

// LeftJoin adds "LEFT JOIN <join>" to the data query. Joins never affect the
// count query, which counts rows of the FROM relation only.
func (q *Query) LeftJoin(join string) {
	q.joins = append(q.joins, "LEFT JOIN "+join)
}

// GroupBy sets the GROUP BY clause of the data query.
func (q *Query) GroupBy(groupBy string) {
	q.groupBy = groupBy
}

// OrderBy sets the ORDER BY clause (without the "ORDER BY" keyword).
func (q *Query) OrderBy(orderBy string) {
	q.orderBy = orderBy
}

// CountSQL returns the count query SQL.
func (q *Query) CountSQL() string {
	return fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE 1=1%s", q.from, q.where)
}

// CountArgs returns the arguments for the count query.
func (q *Query) CountArgs() []interface{} {
	return q.args
}

// DataSQL returns the data query with joins, grouping, ordering and
// LIMIT/OFFSET placeholders.
func (q *Query) DataSQL() string {
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT %s FROM %s", q.cols, q.from)
	for _, j := range q.joins {
		b.WriteString(" " + j)
	}
	fmt.Fprintf(&b, " WHERE 1=1%s", q.where)
	if q.groupBy != "" {
		b.WriteString(" GROUP BY " + q.groupBy)
	}
	if q.orderBy != "" {
		b.WriteString(" ORDER BY " + q.orderBy)
	}
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", q.idx, q.idx+1)
	return b.String()
}

// DataArgs returns the arguments for the data query (search args + limit + offset).
func (q *Query) DataArgs(limit, offset int) []interface{} {
	result := make([]interface{}, len(q.args)+2)
	copy(result, q.args)
	result[len(q.args)] = limit
	result[len(q.args)+1] = offset
	return result
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// EscapeLike escapes the LIKE metacharacters in s using the default
// backslash escape.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}
