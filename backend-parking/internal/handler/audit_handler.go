package handler

import (
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// AuditHandler serves the read-only audit trail
type AuditHandler struct {
	audit service.AuditRecorder
}

// NewAuditHandler creates a new audit handler
func NewAuditHandler(audit service.AuditRecorder) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// ListAudits handles GET /audits?entity=&operation=&result=
func (h *AuditHandler) ListAudits(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.audit.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.AuditListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	filter := domain.AuditFilter{Entity: q.Entity}
	if q.Operation != "" {
		op, err := domain.ParseAuditOperation(q.Operation)
		if err != nil {
			handleError(c, err)
			return
		}
		filter.Operation = op
	}
	if q.Result != "" {
		result, err := domain.ParseAuditResult(q.Result)
		if err != nil {
			handleError(c, err)
			return
		}
		filter.Result = result
	}
	page := pageFrom(dto.PageQuery{Page: q.Page, Size: q.Size})

	result, err := h.audit.Query(ctx, filter, page)
	if err != nil {
		handleError(c, err)
		return
	}
	paginated(c, result.Items, result.Total, page)
}

// ListAuditsByRange handles GET /audits/range?start=&end=
func (h *AuditHandler) ListAuditsByRange(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.audit.range")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.AuditRangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page := pageFrom(dto.PageQuery{Page: q.Page, Size: q.Size})

	result, err := h.audit.QueryByDateRange(ctx, domain.DateRange{Start: q.Start, End: q.End}, page)
	if err != nil {
		handleError(c, err)
		return
	}
	paginated(c, result.Items, result.Total, page)
}

// GetAudit handles GET /audits/:id
func (h *AuditHandler) GetAudit(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.audit.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("audit_id", id))

	rec, err := h.audit.Get(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, rec)
}
