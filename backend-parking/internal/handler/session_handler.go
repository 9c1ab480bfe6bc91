package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/domain"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/dto"
	"github.com/carlosaltan18/Parkingit4-Data/backend-parking/internal/service"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/response"
	"github.com/carlosaltan18/Parkingit4-Data/pkg/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
)

// SessionHandler handles parking session HTTP requests
type SessionHandler struct {
	sessionService service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService service.SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// OpenSession handles POST /sessions/entry
func (h *SessionHandler) OpenSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.open")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.OpenSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(
		attribute.String("plate", req.Plate),
		attribute.Int64("facility_id", req.FacilityID),
	)

	session, err := h.sessionService.OpenSession(ctx, req.Plate, req.FacilityID)
	if err != nil {
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("session_id", session.ID))
	response.Created(c, dto.FromSession(session))
}

// CloseSession handles POST /sessions/exit
func (h *SessionHandler) CloseSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.close")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.CloseSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.String("plate", req.Plate))

	session, err := h.sessionService.CloseSession(ctx, req.Plate)
	if err != nil {
		handleError(c, err)
		return
	}

	span.SetAttributes(attribute.Int64("session_id", session.ID))
	response.Success(c, dto.FromSession(session))
}

// ListSessions handles GET /sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.list")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var q dto.SessionListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	filter := domain.SessionFilter{
		FacilityID: q.FacilityID,
		Status:     domain.SessionStatus(strings.ToLower(strings.TrimSpace(q.Status))),
		Plate:      q.Plate,
	}
	page := pageFrom(dto.PageQuery{Page: q.Page, Size: q.Size})

	result, err := h.sessionService.ListSessions(ctx, filter, page)
	if err != nil {
		handleError(c, err)
		return
	}
	paginated(c, dto.FromSessions(result.Items), result.Total, page)
}

// GetSession handles GET /sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.get")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("session_id", id))

	session, err := h.sessionService.GetSession(ctx, id)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromSession(session))
}

// CreateSession handles POST /sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.create")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	session, err := h.sessionService.CreateSession(ctx, req.ToDomain())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Created(c, dto.FromSession(session))
}

// UpdateSession handles PUT /sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.update")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req dto.SessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	span.SetAttributes(attribute.Int64("session_id", id))

	session, err := h.sessionService.UpdateSession(ctx, id, req.ToDomain())
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, dto.FromSession(session))
}

// DeleteSession handles DELETE /sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.delete")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	span.SetAttributes(attribute.Int64("session_id", id))

	if err := h.sessionService.DeleteSession(ctx, id); err != nil {
		handleError(c, err)
		return
	}
	response.NoContent(c)
}

// Report handles GET /sessions/report/:facilityId?start=&end=
func (h *SessionHandler) Report(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.report")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	sessions, ok := h.report(c)
	if !ok {
		return
	}
	response.Success(c, dto.FromSessions(sessions))
}

// ExportReport handles GET /sessions/report/:facilityId/export and streams the report as CSV
func (h *SessionHandler) ExportReport(c *gin.Context) {
	ctx, span := telemetry.StartSpan(c.Request.Context(), "handler.session.export")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	sessions, ok := h.report(c)
	if !ok {
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="facility-%s-report.csv"`, c.Param("facilityId")))
	c.Status(http.StatusOK)
	c.Writer.Header().Set("Content-Type", "text/csv; charset=utf-8")

	w := csv.NewWriter(c.Writer)
	_ = w.Write([]string{"id", "plate", "facility_id", "tariff_id", "start_time", "end_time", "duration_minutes", "total"})
	for _, s := range sessions {
		_ = w.Write(sessionCSVRow(s))
	}
	w.Flush()
	if err := w.Error(); err != nil {
		_ = c.Error(err)
	}
}

func (h *SessionHandler) report(c *gin.Context) ([]*domain.ParkingSession, bool) {
	facilityID, ok := pathID(c, "facilityId")
	if !ok {
		return nil, false
	}
	var q dto.ReportQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return nil, false
	}

	sessions, err := h.sessionService.ReportByFacility(c.Request.Context(), facilityID, domain.DateRange{Start: q.Start, End: q.End})
	if err != nil {
		handleError(c, err)
		return nil, false
	}
	return sessions, true
}

func sessionCSVRow(s *domain.ParkingSession) []string {
	row := []string{
		strconv.FormatInt(s.ID, 10),
		s.Plate,
		strconv.FormatInt(s.FacilityID, 10),
		"",
		s.StartTime.Format(time.RFC3339),
		"",
		"",
		"",
	}
	if s.TariffID != nil {
		row[3] = strconv.FormatInt(*s.TariffID, 10)
	}
	if s.EndTime != nil {
		row[5] = s.EndTime.Format(time.RFC3339)
		row[6] = strconv.FormatInt(s.DurationMinutes(), 10)
	}
	if s.Total != nil {
		row[7] = strconv.FormatFloat(*s.Total, 'f', 2, 64)
	}
	return row
}
