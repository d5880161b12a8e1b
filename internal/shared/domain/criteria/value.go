package criteria

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Kind es el tipo lógico de un campo filtrable.
type Kind int

const (
	KindString Kind = iota
	KindNumber
	KindTime
	KindBool
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindNumber:
		return "number"
	case KindTime:
		return "time"
	case KindBool:
		return "bool"
	}
	return "unknown"
}

// TimeLayout es el formato textual de los instantes (UTC, milisegundos).
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// Value es un escalar tipado. El valor cero es un string vacío.
type Value struct {
	kind Kind
	null bool
	s    string
	n    float64
	t    time.Time
	b    bool
}

func StringValue(s string) Value  { return Value{kind: KindString, s: s} }
func NumberValue(n float64) Value { return Value{kind: KindNumber, n: n} }
func BoolValue(b bool) Value      { return Value{kind: KindBool, b: b} }
func NullValue(kind Kind) Value   { return Value{kind: kind, null: true} }
func TimeValue(t time.Time) Value { return Value{kind: KindTime, t: NormalizeTime(t)} }

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.null }
func (v Value) Str() string     { return v.s }
func (v Value) Number() float64 { return v.n }
func (v Value) Time() time.Time { return v.t }
func (v Value) Bool() bool      { return v.b }

func NullableTimeValue(t *time.Time) Value {
	if t == nil {
		return NullValue(KindTime)
	}
	return TimeValue(*t)
}

// NormalizeTime lleva un instante a UTC con precisión de milisegundos,
// la precisión común a todos los backends.
func NormalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Native devuelve el valor como tipo Go (nil si es nulo).
func (v Value) Native() any {
	if v.null {
		return nil
	}
	switch v.kind {
	case KindNumber:
		return v.n
	case KindTime:
		return v.t
	case KindBool:
		return v.b
	}
	return v.s
}

// Text es la representación textual estable, usada en cursores.
func (v Value) Text() string {
	if v.null {
		return ""
	}
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindTime:
		return v.t.Format(TimeLayout)
	case KindBool:
		return strconv.FormatBool(v.b)
	}
	return v.s
}

// ParseText es la inversa de Text.
func ParseText(kind Kind, s string) (Value, error) {
	switch kind {
	case KindString:
		return StringValue(s), nil
	case KindNumber:
		n, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Value{}, err
		}
		return NumberValue(n), nil
	case KindTime:
		t, err := parseTime(s)
		if err != nil {
			return Value{}, err
		}
		return TimeValue(t), nil
	case KindBool:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, err
		}
		return BoolValue(b), nil
	}
	return Value{}, fmt.Errorf("unsupported kind %s", kind)
}

var timeLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse %q as ISO-8601 date", s)
}

// coerce convierte la entrada opaca de un filtro al tipo del campo.
func coerce(kind Kind, raw any) (Value, error) {
	switch x := raw.(type) {
	case nil:
		return Value{}, fmt.Errorf("value is required")
	case Value:
		if x.null || x.kind != kind {
			return Value{}, fmt.Errorf("expected %s value", kind)
		}
		return x, nil
	case string:
		return ParseText(kind, x)
	}

	switch kind {
	case KindString:
		if s, ok := raw.(fmt.Stringer); ok {
			return StringValue(s.String()), nil
		}
	case KindNumber:
		if n, ok := toFloat(raw); ok {
			return NumberValue(n), nil
		}
	case KindTime:
		switch t := raw.(type) {
		case time.Time:
			return TimeValue(t), nil
		case *time.Time:
			if t != nil {
				return TimeValue(*t), nil
			}
		}
	case KindBool:
		if b, ok := raw.(bool); ok {
			return BoolValue(b), nil
		}
	}
	return Value{}, fmt.Errorf("cannot use %T as %s", raw, kind)
}

func toFloat(raw any) (float64, bool) {
	switch n := raw.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// Collation es el locale con el que se ordenan los strings en todos los backends.
const Collation = "en"

var collators = sync.Pool{
	New: func() any { return collate.New(language.English) },
}

// CompareStrings compara dos strings con el collator del locale.
// collate.Collator no es seguro para uso concurrente, de ahí el pool.
func CompareStrings(a, b string) int {
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return c.CompareString(a, b)
}

// Compare ordena dos valores del mismo tipo. Los nulos van primero.
func Compare(a, b Value) int {
	switch {
	case a.null && b.null:
		return 0
	case a.null:
		return -1
	case b.null:
		return 1
	}
	switch a.kind {
	case KindNumber:
		return cmpOrdered(a.n, b.n)
	case KindTime:
		return a.t.Compare(b.t)
	case KindBool:
		switch {
		case a.b == b.b:
			return 0
		case !a.b:
			return -1
		}
		return 1
	}
	return CompareStrings(a.s, b.s)
}

// EqualValues es la igualdad del mismo orden que Compare: dos strings que el
// collator considera iguales (p. ej. NFC y NFD) son iguales. Nulo nunca es igual.
func EqualValues(a, b Value) bool {
	if a.null || b.null {
		return false
	}
	return Compare(a, b) == 0
}

// Key devuelve una clave canónica del valor: dos valores con EqualValues
// tienen la misma clave. Para strings es la clave de ordenación del collator.
func Key(v Value) string {
	if v.null || v.kind != KindString {
		return v.Text()
	}
	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)
	return hex.EncodeToString(c.KeyFromString(&collate.Buffer{}, v.s))
}

func cmpOrdered(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
