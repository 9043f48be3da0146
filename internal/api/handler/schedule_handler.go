package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

type ScheduleHandler struct {
	service ports.ScheduleService
}

func NewScheduleHandler(service ports.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

type createShiftRequest struct {
	UserID    string `json:"user_id"    validate:"required"`
	StartTime string `json:"start_time" validate:"required"`
	EndTime   string `json:"end_time"   validate:"required"`
}

type scheduleListResponse struct {
	Data []domain.Shift `json:"data"`
}

// List returns shifts in the requested range (?start=...&end=..., RFC 3339).
//
// @Summary      List shifts
// @Tags         schedule
// @Produce      json
// @Param        start  query     string  true  "range start (RFC 3339)"
// @Param        end    query     string  true  "range end (RFC 3339)"
// @Success      200    {object}  scheduleListResponse
// @Failure      503    {object}  map[string]string
// @Router       /api/schedule [get]
func (h *ScheduleHandler) List(c echo.Context) error {
	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start must be RFC 3339"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end must be RFC 3339"})
	}

	shifts, serr := h.service.InRange(c.Request().Context(), start, end)
	if serr != nil {
		return serr
	}
	return c.JSON(http.StatusOK, scheduleListResponse{Data: shifts})
}

// Create stores a new shift.
//
// @Summary      Create a shift
// @Tags         schedule
// @Accept       json
// @Produce      json
// @Param        body  body      createShiftRequest  true  "Shift details"
// @Success      201   {object}  domain.Shift
// @Failure      400   {object}  map[string]string
// @Router       /api/schedule [post]
func (h *ScheduleHandler) Create(c echo.Context) error {
	var req createShiftRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start_time must be RFC 3339"})
	}
	end, err := time.Parse(time.RFC3339, req.EndTime)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end_time must be RFC 3339"})
	}
	if !end.After(start) {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end_time must be after start_time"})
	}

	shift, serr := h.service.Create(c.Request().Context(), &domain.Shift{
		UserID:    req.UserID,
		StartTime: start.UTC(),
		EndTime:   end.UTC(),
	})
	if serr != nil {
		return serr
	}
	return c.JSON(http.StatusCreated, shift)
}
