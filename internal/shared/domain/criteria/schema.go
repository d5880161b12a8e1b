package criteria

import (
	"fmt"
	"time"
)

// FieldInfo describe un campo consultable de una entidad.
type FieldInfo struct {
	Name     string
	Kind     Kind
	Unique   bool
	Nullable bool
}

// Spec es la vista no genérica de un esquema, suficiente para validar un Criteria.
type Spec interface {
	Entity() string
	Identity() FieldInfo
	Lookup(name string) (FieldInfo, bool)
}

// FieldOption ajusta la definición de un campo.
type FieldOption func(*FieldInfo)

// Unique marca el campo como único entre entidades.
func Unique() FieldOption {
	return func(f *FieldInfo) { f.Unique = true }
}

// Field asocia un nombre lógico (p.ej. "profile.firstName") a un accessor tipado.
type Field[T any] struct {
	info FieldInfo
	get  func(T) Value
}

func (f Field[T]) Info() FieldInfo { return f.info }

func newField[T any](name string, kind Kind, nullable bool, get func(T) Value, opts []FieldOption) Field[T] {
	info := FieldInfo{Name: name, Kind: kind, Nullable: nullable}
	for _, opt := range opts {
		opt(&info)
	}
	return Field[T]{info: info, get: get}
}

func StringField[T any](name string, get func(T) string, opts ...FieldOption) Field[T] {
	return newField(name, KindString, false, func(e T) Value { return StringValue(get(e)) }, opts)
}

func NumberField[T any](name string, get func(T) float64, opts ...FieldOption) Field[T] {
	return newField(name, KindNumber, false, func(e T) Value { return NumberValue(get(e)) }, opts)
}

func TimeField[T any](name string, get func(T) time.Time, opts ...FieldOption) Field[T] {
	return newField(name, KindTime, false, func(e T) Value { return TimeValue(get(e)) }, opts)
}

// NullableTimeField modela instantes opcionales ("nunca"): nil es un valor nulo.
func NullableTimeField[T any](name string, get func(T) *time.Time, opts ...FieldOption) Field[T] {
	return newField(name, KindTime, true, func(e T) Value { return NullableTimeValue(get(e)) }, opts)
}

func BoolField[T any](name string, get func(T) bool, opts ...FieldOption) Field[T] {
	return newField(name, KindBool, false, func(e T) Value { return BoolValue(get(e)) }, opts)
}

// Schema es el catálogo de campos consultables de una entidad T.
type Schema[T any] struct {
	entity   string
	identity string
	fields   map[string]Field[T]
	names    []string
}

var _ Spec = (*Schema[struct{}])(nil)

// NewSchema construye el esquema. Hace panic si la definición es incoherente:
// es un error de programación, no de datos.
func NewSchema[T any](entity, identity string, fields ...Field[T]) *Schema[T] {
	s := &Schema[T]{entity: entity, identity: identity, fields: make(map[string]Field[T], len(fields))}
	for _, f := range fields {
		if f.info.Name == "" {
			panic(fmt.Sprintf("criteria: %s schema has an unnamed field", entity))
		}
		if _, dup := s.fields[f.info.Name]; dup {
			panic(fmt.Sprintf("criteria: %s schema declares %q twice", entity, f.info.Name))
		}
		if f.info.Name == identity {
			f.info.Unique = true
			if f.info.Nullable || f.info.Kind != KindString {
				panic(fmt.Sprintf("criteria: %s identity %q must be a non-null string", entity, identity))
			}
		}
		s.fields[f.info.Name] = f
		s.names = append(s.names, f.info.Name)
	}
	if _, ok := s.fields[identity]; !ok {
		panic(fmt.Sprintf("criteria: %s schema lacks identity field %q", entity, identity))
	}
	return s
}

func (s *Schema[T]) Entity() string { return s.entity }

func (s *Schema[T]) Identity() FieldInfo { return s.fields[s.identity].info }

func (s *Schema[T]) Lookup(name string) (FieldInfo, bool) {
	f, ok := s.fields[name]
	return f.info, ok
}

// Fields devuelve los campos en orden de declaración.
func (s *Schema[T]) Fields() []FieldInfo {
	out := make([]FieldInfo, 0, len(s.names))
	for _, n := range s.names {
		out = append(out, s.fields[n].info)
	}
	return out
}

// UniqueFields devuelve los campos únicos distintos de la identidad.
func (s *Schema[T]) UniqueFields() []FieldInfo {
	var out []FieldInfo
	for _, n := range s.names {
		if f := s.fields[n].info; f.Unique && n != s.identity {
			out = append(out, f)
		}
	}
	return out
}

// Value lee un campo de la entidad. Un campo desconocido devuelve nulo.
func (s *Schema[T]) Value(e T, field string) Value {
	f, ok := s.fields[field]
	if !ok {
		return NullValue(KindString)
	}
	return f.get(e)
}

// ID devuelve la identidad de la entidad como texto.
func (s *Schema[T]) ID(e T) string {
	return s.fields[s.identity].get(e).Str()
}

// Accessor fija la entidad para leer campos por nombre.
func (s *Schema[T]) Accessor(e T) func(field string) Value {
	return func(field string) Value { return s.Value(e, field) }
}
