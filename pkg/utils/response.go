package utils

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/davicafu/criterialab/internal/shared/domain"
	"github.com/davicafu/criterialab/internal/shared/domain/criteria"
)

// ErrorResponse define la estructura estándar para las respuestas de error.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Field   string `json:"field,omitempty"`
}

// OffsetPage es la forma de respuesta de la paginación por offset.
type OffsetPage[T any] struct {
	Data  []T  `json:"data"`
	Total *int `json:"total"`
}

// CursorPage es la forma de respuesta de la paginación por cursor.
type CursorPage[T any] struct {
	Data       []T            `json:"data"`
	Pagination CursorMetadata `json:"pagination"`
}

type CursorMetadata struct {
	HasNext bool   `json:"hasNext"`
	Cursor  string `json:"cursor,omitempty"`
}

// SendSuccess envía una respuesta exitosa con un payload de datos.
func SendSuccess(c *gin.Context, statusCode int, data interface{}) {
	c.JSON(statusCode, gin.H{
		"data": data,
	})
}

// SendPage elige la forma según el modo de paginación del Criteria.
func SendPage[T any](c *gin.Context, cr criteria.Criteria, page domain.PaginatedResult[T]) {
	if cr.IsCursor() {
		c.JSON(http.StatusOK, CursorPage[T]{
			Data:       page.Data,
			Pagination: CursorMetadata{HasNext: page.HasNext, Cursor: page.Cursor},
		})
		return
	}
	c.JSON(http.StatusOK, OffsetPage[T]{Data: page.Data, Total: page.Total})
}

// SendError envía una respuesta de error con un formato estandarizado.
func SendError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error": ErrorResponse{
			Message: message,
		},
	})
}

// SendErrorCode añade un código legible por máquina al error.
func SendErrorCode(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, gin.H{
		"error": ErrorResponse{Message: message, Code: code},
	})
}

// SendDomainError traduce los errores de repositorio y de Criteria a HTTP.
// Devuelve el status elegido para que el llamador pueda registrar los 5xx.
func SendDomainError(c *gin.Context, err error) int {
	var (
		status = http.StatusInternalServerError
		body   = ErrorResponse{Message: "internal error", Code: string(domain.CodeInfrastructure)}
		re     *domain.RepositoryError
		ve     *criteria.ValidationError
	)
	switch {
	case errors.As(err, &ve):
		status = http.StatusBadRequest
		body = ErrorResponse{Message: ve.Error(), Code: "INVALID_CRITERIA", Field: ve.Field}
	case errors.As(err, &re) && re.Code == domain.CodeNotFound:
		status = http.StatusNotFound
		body = ErrorResponse{Message: re.Error(), Code: string(re.Code)}
	case errors.As(err, &re) && re.Code == domain.CodeAlreadyExists:
		status = http.StatusConflict
		body = ErrorResponse{Message: re.Error(), Code: string(re.Code), Field: re.Field}
	}
	c.JSON(status, gin.H{"error": body})
	return status
}

// --- Helpers específicos para errores comunes ---

func SendBadRequest(c *gin.Context, message string) {
	SendError(c, http.StatusBadRequest, message)
}

func SendNotFound(c *gin.Context, message string) {
	SendError(c, http.StatusNotFound, message)
}

func SendInternalServerError(c *gin.Context, message string) {
	SendError(c, http.StatusInternalServerError, message)
}
