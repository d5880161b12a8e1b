package sqlstore

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

const (
	// collationName existe en ambos dialectos: registrada en SQLite, creada
	// como ICU no determinista en PostgreSQL. Iguala lo que el collator iguala.
	collationName = "criterialab_en"
	sqliteLower   = "criterialab_lower"
)

// La collation y el lower de SQLite se implementan en Go para que ordenen y
// comparen exactamente igual que el backend en memoria.
func init() {
	sqlite.MustRegisterCollationUtf8(collationName, criteria.CompareStrings)
	sqlite.MustRegisterDeterministicScalarFunction(sqliteLower, 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch s := args[0].(type) {
			case nil:
				return nil, nil
			case string:
				return strings.ToLower(s), nil
			case []byte:
				return strings.ToLower(string(s)), nil
			}
			return args[0], nil
		})
}

// Dialect recoge lo que cambia entre SQLite y PostgreSQL.
type Dialect struct {
	Name        string
	DriverName  string
	placeholder sq.PlaceholderFormat
	collate     string
	contains    string // patrón con %s = columna
	unbounded   bool   // admite OFFSET sin LIMIT
	setup       []string
}

var (
	SQLite = Dialect{
		Name:        "sqlite",
		DriverName:  "sqlite",
		placeholder: sq.Question,
		collate:     "COLLATE " + collationName,
		contains:    "instr(" + sqliteLower + "(%s), ?) > 0",
	}
	Postgres = Dialect{
		Name:        "postgres",
		DriverName:  "pgx",
		placeholder: sq.Dollar,
		collate:     "COLLATE " + collationName,
		contains:    "strpos(lower(%s), ?) > 0",
		unbounded:   true,
		setup: []string{
			"CREATE COLLATION IF NOT EXISTS " + collationName + " (provider = icu, locale = 'en', deterministic = false)",
		},
	}
)

// Arg convierte un valor tipado a argumento del driver.
// SQLite guarda los instantes como TEXT de ancho fijo (ordenable como string).
func (d Dialect) Arg(v criteria.Value) any {
	if v.IsNull() {
		return nil
	}
	if v.Kind() == criteria.KindTime {
		return d.Time(v.Time())
	}
	return v.Native()
}

func (d Dialect) Time(t time.Time) any {
	t = criteria.NormalizeTime(t)
	if d.Name == SQLite.Name {
		return t.Format(criteria.TimeLayout)
	}
	return t
}

func (d Dialect) NullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return d.Time(*t)
}

// ScanTime interpreta lo leído de una columna de instante en cualquiera de los dialectos.
func ScanTime(src any) (*time.Time, error) {
	var t time.Time
	switch v := src.(type) {
	case nil:
		return nil, nil
	case time.Time:
		t = v
	case string:
		p, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("invalid time %q: %w", v, err)
		}
		t = p
	case []byte:
		return ScanTime(string(v))
	default:
		return nil, fmt.Errorf("unsupported time value %T", src)
	}
	t = criteria.NormalizeTime(t)
	return &t, nil
}

// uniqueViolation devuelve la columna cuya restricción UNIQUE se violó.
func (d Dialect) uniqueViolation(err error, table string) (string, bool) {
	var se *sqlite.Error
	if errors.As(err, &se) && (se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || se.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		// "UNIQUE constraint failed: channels.name"
		msg := se.Error()
		if i := strings.LastIndex(msg, table+"."); i >= 0 {
			col := msg[i+len(table)+1:]
			if j := strings.IndexAny(col, " ,)"); j >= 0 {
				col = col[:j]
			}
			return col, true
		}
		return "", true
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) && pe.Code == "23505" {
		return strings.TrimPrefix(pe.ConstraintName, UniqueConstraint(table, "")), true
	}
	return "", false
}

// UniqueIndex es el DDL del índice único de una columna de texto. Compara con
// la collation de las consultas, así que dos valores que ordenan igual chocan.
func (d Dialect) UniqueIndex(table, column string) string {
	return fmt.Sprintf("CREATE UNIQUE INDEX IF NOT EXISTS %s ON %s (%s %s)",
		UniqueConstraint(table, column), table, column, d.collate)
}

// UniqueConstraint es el nombre de restricción que esperan los DDL: uniq_<tabla>_<columna>.
func UniqueConstraint(table, column string) string {
	return "uniq_" + table + "_" + column
}
