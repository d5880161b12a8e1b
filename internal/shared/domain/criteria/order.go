package criteria

import "strings"

type OrderType string

const (
	Asc  OrderType = "asc"
	Desc OrderType = "desc"
	None OrderType = "none"
)

// Order es el criterio de ordenación principal; la identidad se añade siempre al final.
type Order struct {
	By   string
	Type OrderType
}

func OrderBy(field string, t OrderType) Order { return Order{By: field, Type: t} }

func NoOrder() Order { return Order{Type: None} }

func ParseOrderType(s string) (OrderType, error) {
	switch t := OrderType(strings.ToLower(strings.TrimSpace(s))); t {
	case Asc, Desc, None:
		return t, nil
	case "":
		return None, nil
	}
	return "", invalid("order", "unknown order type %q", s)
}

func (o Order) IsNone() bool { return o.Type == None || o.Type == "" || o.By == "" }

// SortKey es una clave de ordenación resuelta.
type SortKey struct {
	Field FieldInfo
	Desc  bool
}
