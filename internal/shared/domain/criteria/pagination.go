package criteria

// Pagination es OffsetPagination o CursorPagination.
type Pagination interface {
	isPagination()
}

// OffsetPagination: Limit 0 significa sin límite.
type OffsetPagination struct {
	Limit     int
	Offset    int
	WithTotal bool
}

// CursorPagination: Cursor vacío es la primera página.
// TieBreaker vacío usa la identidad de la entidad.
type CursorPagination struct {
	Limit      int
	Cursor     string
	TieBreaker string
}

func (OffsetPagination) isPagination() {}
func (CursorPagination) isPagination() {}
