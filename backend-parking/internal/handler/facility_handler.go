package handler

import (
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// FacilityHandler handles facility HTTP requests
type FacilityHandler struct {
	facilityService service.FacilityService
}

// NewFacilityHandler creates a new facility handler
func NewFacilityHandler(facilityService service.FacilityService) *FacilityHandler {
	return &FacilityHandler{facilityService: facilityService}
}

// CreateFacility handles POST /facilities
func (h *FacilityHandler) CreateFacility(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.facility.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.FacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	facility, err := h.facilityService.CreateFacility(ctx, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, facility)
}

// GetFacility handles GET /facilities/:id
func (h *FacilityHandler) GetFacility(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.facility.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("facility_id", id))

	facility, err := h.facilityService.GetFacility(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, facility)
}

// ListFacilities handles GET /facilities
func (h *FacilityHandler) ListFacilities(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.facility.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	page := pageFrom(q)

	result, err := h.facilityService.ListFacilities(ctx, page)
	if err != nil {
		handleError(c, err)
		return
	}
	paginated(c, result.Items, result.Total, page)
}

// UpdateFacility handles PUT /facilities/:id
func (h *FacilityHandler) UpdateFacility(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.facility.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.FacilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("facility_id", id))

	facility, err := h.facilityService.UpdateFacility(ctx, id, &req)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, facility)
}

// DeleteFacility handles DELETE /facilities/:id
func (h *FacilityHandler) DeleteFacility(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.facility.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("facility_id", id))

	if err := h.facilityService.DeleteFacility(ctx, id); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}
