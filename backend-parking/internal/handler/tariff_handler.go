package handler

import (
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// TariffHandler handles tariff HTTP requests
type TariffHandler struct {
	tariffService service.TariffService
}

// NewTariffHandler creates a new tariff handler
func NewTariffHandler(tariffService service.TariffService) *TariffHandler {
	return &TariffHandler{tariffService: tariffService}
}

// CreateTariff handles POST /tariffs
func (h *TariffHandler) CreateTariff(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tariff.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CreateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	tariff, err := h.tariffService.CreateTariff(ctx, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, tariff)
}

// GetTariff handles GET /tariffs/:id
func (h *TariffHandler) GetTariff(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tariff.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("tariff_id", id))

	tariff, err := h.tariffService.GetTariff(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tariff)
}

// ListTariffs handles GET /tariffs
func (h *TariffHandler) ListTariffs(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tariff.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page := pageFrom(q)

	result, err := h.tariffService.ListTariffs(ctx, page)
	if err != nil {
		handleError(c, err)
		return
	}
	paginated(c, result.Items, result.Total, page)
}

// UpdateTariff handles PUT /tariffs/:id
func (h *TariffHandler) UpdateTariff(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tariff.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateTariffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("tariff_id", id))

	tariff, err := h.tariffService.UpdateTariff(ctx, id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, tariff)
}

// DeleteTariff handles DELETE /tariffs/:id
func (h *TariffHandler) DeleteTariff(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.tariff.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("tariff_id", id))

	if err := h.tariffService.DeleteTariff(ctx, id); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
