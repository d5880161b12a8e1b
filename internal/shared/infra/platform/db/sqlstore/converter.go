package sqlstore

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

// Converter traduce un Criteria a SQL con squirrel.
type Converter struct {
	dialect Dialect
	columns map[string]string
}

// NewConverter: columns mapea campo -> columna; un campo sin entrada usa su nombre.
func NewConverter(d Dialect, columns map[string]string) *Converter {
	return &Converter{dialect: d, columns: columns}
}

func (cv *Converter) Column(field string) string {
	if c, ok := cv.columns[field]; ok {
		return c
	}
	return field
}

func (cv *Converter) Builder() sq.StatementBuilderType {
	return sq.StatementBuilder.PlaceholderFormat(cv.dialect.placeholder)
}

// Select aplica filtros, cursor, orden y paginación (limit+1).
func (cv *Converter) Select(c criteria.Criteria, table string, columns ...string) sq.SelectBuilder {
	q := cv.Builder().Select(columns...).From(table)
	for _, cond := range c.Conditions() {
		q = q.Where(cv.condition(cond))
	}
	if seek := c.Seek(); seek != nil {
		or := sq.Or{}
		for _, cl := range seek {
			and := sq.And{}
			for _, cond := range cl {
				and = append(and, cv.condition(cond))
			}
			or = append(or, and)
		}
		q = q.Where(or)
	}

	for _, k := range c.Sort() {
		q = q.OrderBy(cv.orderBy(k))
	}

	fetch, off := c.FetchLimit(), c.Offset()
	switch {
	case fetch > 0:
		q = q.Limit(uint64(fetch))
		if off > 0 {
			q = q.Offset(uint64(off))
		}
	case off > 0 && cv.dialect.unbounded:
		q = q.Offset(uint64(off))
	case off > 0:
		// SQLite no acepta OFFSET sin LIMIT
		q = q.Suffix(fmt.Sprintf("LIMIT -1 OFFSET %d", off))
	}
	return q
}

// Count ignora la paginación.
func (cv *Converter) Count(c criteria.Criteria, table string) sq.SelectBuilder {
	q := cv.Builder().Select("COUNT(*)").From(table)
	for _, cond := range c.Conditions() {
		q = q.Where(cv.condition(cond))
	}
	return q
}

func (cv *Converter) orderBy(k criteria.SortKey) string {
	var b strings.Builder
	b.WriteString(cv.Column(k.Field.Name))
	if k.Field.Kind == criteria.KindString {
		b.WriteString(" " + cv.dialect.collate)
	}
	if k.Desc {
		b.WriteString(" DESC NULLS LAST")
	} else {
		b.WriteString(" ASC NULLS FIRST")
	}
	return b.String()
}

func (cv *Converter) condition(c criteria.Condition) sq.Sqlizer {
	col := cv.Column(c.Field.Name)
	arg := cv.dialect.Arg(c.Value)

	// igualdad y orden sobre strings con la collation, como en memoria
	ordered := col
	if c.Field.Kind == criteria.KindString {
		ordered = col + " " + cv.dialect.collate
	}

	switch c.Operator {
	case criteria.Equal:
		return sq.Expr(ordered+" = ?", arg)
	case criteria.NotEqual:
		return sq.Expr("("+col+" IS NULL OR "+ordered+" <> ?)", arg)
	case criteria.Contains:
		return sq.Expr(fmt.Sprintf(cv.dialect.contains, col), strings.ToLower(c.Value.Str()))
	case criteria.NotContains:
		return sq.Expr("("+col+" IS NULL OR NOT ("+fmt.Sprintf(cv.dialect.contains, col)+"))", strings.ToLower(c.Value.Str()))
	case criteria.GreaterThan:
		return sq.Expr(ordered+" > ?", arg)
	case criteria.LessThan:
		return sq.Expr(ordered+" < ?", arg)
	case criteria.IsNull:
		return sq.Expr(col + " IS NULL")
	case criteria.IsNotNull:
		return sq.Expr(col + " IS NOT NULL")
	}
	return sq.Expr("1 = 0")
}
