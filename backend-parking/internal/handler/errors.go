package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var errInvalidIDParam = errors.New("id must be a positive integer")

// handleError maps a service error to its HTTP status and error code
func handleError(c *gin.Context, err error) {
	span := trace.SpanFromContext(c.Request.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	_ = c.Error(err)

	switch {
	case domain.IsNoResultsError(err):
		response.Error(c, http.StatusNotFound, "NO_RESULTS", err.Error(), "")
	case domain.IsNotFoundError(err):
		response.NotFound(c, err.Error())
	case domain.IsConflictError(err):
		response.Conflict(c, err.Error())
	case domain.IsValidationError(err):
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error(), "")
	case domain.IsFatalError(err):
		response.Error(c, http.StatusInternalServerError, "CONFIGURATION_ERROR", "Service is misconfigured", "")
	case domain.IsStorageError(err):
		response.Error(c, http.StatusServiceUnavailable, "STORAGE_UNAVAILABLE", "Storage is unavailable, try again later", "")
	default:
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal Server Error", "")
	}
}

// bindError answers a request whose body or query could not be bound
func bindError(c *gin.Context, err error) {
	span := trace.SpanFromContext(c.Request.Context())
	span.RecordError(err)
	span.SetStatus(codes.Error, "invalid request")
	response.Error(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid request", err.Error())
}

// pathID parses a positive int64 path parameter
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		bindError(c, errInvalidIDParam)
		return 0, false
	}
	return id, true
}

// pageFrom reads the zero-based page and size query parameters
func pageFrom(q dto.PageQuery) domain.Page {
	return domain.NewPage(q.Page, q.Size)
}

func paginated[T any](c *gin.Context, items []T, total int64, page domain.Page) {
	if items == nil {
		items = []T{}
	}
	response.Paginated(c, items, response.NewMeta(page.Number, page.Size, total))
}
