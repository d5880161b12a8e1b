package criteria

import (
	"encoding/base64"
	"encoding/json"
)

// Dos formatos de cursor:
//   - simple: el valor del campo principal en texto ("user1"), válido cuando ese
//     campo ya define un orden total (es el desempate, o es único y no nulo).
//   - compuesto: base64url de {"v": principal|null, "t": desempate}.
type cursorToken struct {
	V *string `json:"v"`
	T string  `json:"t"`
}

func isSimpleCursor(primary, tie FieldInfo) bool {
	return primary.Name == tie.Name || (primary.Unique && !primary.Nullable)
}

func encodeCursor(simple bool, primary, tie Value) string {
	if simple {
		return primary.Text()
	}
	tok := cursorToken{T: tie.Text()}
	if !primary.IsNull() {
		v := primary.Text()
		tok.V = &v
	}
	raw, _ := json.Marshal(tok)
	return base64.RawURLEncoding.EncodeToString(raw)
}

func decodeCursor(simple bool, primary, tie FieldInfo, token string) (Value, Value, error) {
	if simple {
		pv, err := ParseText(primary.Kind, token)
		if err != nil {
			return Value{}, Value{}, invalid("cursor", "malformed cursor: %v", err)
		}
		return pv, pv, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return Value{}, Value{}, invalid("cursor", "malformed cursor")
	}
	var tok cursorToken
	if err := json.Unmarshal(raw, &tok); err != nil {
		return Value{}, Value{}, invalid("cursor", "malformed cursor")
	}
	tv, err := ParseText(tie.Kind, tok.T)
	if err != nil || tok.T == "" {
		return Value{}, Value{}, invalid("cursor", "malformed cursor tie-breaker")
	}
	pv := NullValue(primary.Kind)
	if tok.V != nil {
		if pv, err = ParseText(primary.Kind, *tok.V); err != nil {
			return Value{}, Value{}, invalid("cursor", "malformed cursor value: %v", err)
		}
	} else if !primary.Nullable {
		return Value{}, Value{}, invalid("cursor", "null position on non-nullable field %q", primary.Name)
	}
	return pv, tv, nil
}

// seekClauses traduce una posición a "filas estrictamente posteriores" (OR de ANDs).
// ASC: los nulos van primero. DESC: los nulos van al final.
func seekClauses(simple bool, primary SortKey, tie FieldInfo, pv, tv Value) []Clause {
	p := primary.Field
	cmp := GreaterThan
	if primary.Desc {
		cmp = LessThan
	}
	if simple {
		return []Clause{{{Field: p, Operator: cmp, Value: pv}}}
	}

	afterTie := Condition{Field: tie, Operator: cmp, Value: tv}
	isNull := Condition{Field: p, Operator: IsNull, Value: NullValue(p.Kind)}

	switch {
	case !primary.Desc && !pv.IsNull():
		return []Clause{
			{{Field: p, Operator: GreaterThan, Value: pv}},
			{{Field: p, Operator: Equal, Value: pv}, afterTie},
		}
	case !primary.Desc:
		return []Clause{
			{{Field: p, Operator: IsNotNull, Value: NullValue(p.Kind)}},
			{isNull, afterTie},
		}
	case !pv.IsNull():
		return []Clause{
			{{Field: p, Operator: LessThan, Value: pv}},
			{isNull},
			{{Field: p, Operator: Equal, Value: pv}, afterTie},
		}
	}
	return []Clause{{isNull, afterTie}}
}
