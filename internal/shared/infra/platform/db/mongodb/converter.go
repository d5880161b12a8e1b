package mongodb

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

// collation alinea la comparación de strings con el collator en memoria.
var collation = &options.Collation{Locale: criteria.Collation}

// Converter traduce un Criteria a filtro y opciones de MongoDB.
type Converter[T any] struct {
	schema *criteria.Schema[T]
	paths  map[string]string
}

// NewConverter: la identidad se guarda en "_id"; el resto de campos usa su
// nombre como ruta BSON ("profile.firstName") salvo que paths diga otra cosa.
func NewConverter[T any](schema *criteria.Schema[T], paths map[string]string) *Converter[T] {
	p := map[string]string{schema.Identity().Name: "_id"}
	for k, v := range paths {
		p[k] = v
	}
	return &Converter[T]{schema: schema, paths: p}
}

func (cv *Converter[T]) Path(field string) string {
	if p, ok := cv.paths[field]; ok {
		return p
	}
	return field
}

// Filter incluye los filtros y, si hay cursor, la condición de posición.
func (cv *Converter[T]) Filter(c criteria.Criteria) bson.D {
	and := cv.conditions(c.Conditions())
	if seek := c.Seek(); seek != nil {
		or := bson.A{}
		for _, cl := range seek {
			or = append(or, bson.D{{Key: "$and", Value: cv.conditions(cl)}})
		}
		and = append(and, bson.D{{Key: "$or", Value: or}})
	}
	if len(and) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: and}}
}

// CountFilter ignora la paginación.
func (cv *Converter[T]) CountFilter(c criteria.Criteria) bson.D {
	and := cv.conditions(c.Conditions())
	if len(and) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: and}}
}

// FindOptions: orden con desempate, skip en modo offset y limit+1.
func (cv *Converter[T]) FindOptions(c criteria.Criteria) *options.FindOptions {
	opts := options.Find().SetCollation(collation)

	sort := bson.D{}
	for _, k := range c.Sort() {
		dir := 1
		if k.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: cv.Path(k.Field.Name), Value: dir})
	}
	opts.SetSort(sort)

	if off := c.Offset(); off > 0 {
		opts.SetSkip(int64(off))
	}
	if fetch := c.FetchLimit(); fetch > 0 {
		opts.SetLimit(int64(fetch))
	}
	return opts
}

func (cv *Converter[T]) CountOptions() *options.CountOptions {
	return options.Count().SetCollation(collation)
}

func (cv *Converter[T]) conditions(conds []criteria.Condition) bson.A {
	out := bson.A{}
	for _, c := range conds {
		out = append(out, cv.condition(c))
	}
	return out
}

func (cv *Converter[T]) condition(c criteria.Condition) bson.D {
	path := cv.Path(c.Field.Name)
	v := BSONValue(c.Value)

	var expr interface{}
	switch c.Operator {
	case criteria.Equal:
		expr = bson.M{"$eq": v}
	case criteria.NotEqual:
		// $ne también acepta documentos con el campo a null
		expr = bson.M{"$ne": v}
	case criteria.Contains:
		expr = bson.M{"$regex": regexp.QuoteMeta(c.Value.Str()), "$options": "i"}
	case criteria.NotContains:
		expr = bson.M{"$not": primitive.Regex{Pattern: regexp.QuoteMeta(c.Value.Str()), Options: "i"}}
	case criteria.GreaterThan:
		expr = bson.M{"$gt": v}
	case criteria.LessThan:
		expr = bson.M{"$lt": v}
	case criteria.IsNull:
		expr = bson.M{"$eq": nil}
	case criteria.IsNotNull:
		expr = bson.M{"$ne": nil}
	}
	return bson.D{{Key: path, Value: expr}}
}

// BSONValue pasa un criteria.Value a su tipo BSON nativo.
func BSONValue(v criteria.Value) interface{} {
	return v.Native()
}
