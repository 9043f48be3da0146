package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

type SalesHandler struct {
	service ports.SalesService
}

func NewSalesHandler(service ports.SalesService) *SalesHandler {
	return &SalesHandler{service: service}
}

type recordSaleRequest struct {
	Amount float64 `json:"amount"  validate:"required,gt=0"`
	Date   string  `json:"date"`
	UserID string  `json:"user_id" validate:"required"`
}

type salesListResponse struct {
	Data []domain.Sale `json:"data"`
}

// List returns sales for a period (?period=day|week|month) or an explicit
// range (?start=...&end=..., RFC 3339). Period takes precedence.
//
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Param        period  query     string  false  "day, week, or month"
// @Param        start   query     string  false  "range start (RFC 3339)"
// @Param        end     query     string  false  "range end (RFC 3339)"
// @Success      200     {object}  salesListResponse
// @Failure      503     {object}  map[string]string
// @Router       /api/sales [get]
func (h *SalesHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	if period := c.QueryParam("period"); period != "" {
		switch domain.SalesPeriod(period) {
		case domain.PeriodDay, domain.PeriodWeek, domain.PeriodMonth:
		default:
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "period must be one of: day week month"})
		}
		sales, err := h.service.ForPeriod(ctx, domain.SalesPeriod(period))
		if err != nil {
			return err
		}
		return c.JSON(http.StatusOK, salesListResponse{Data: sales})
	}

	start, err := time.Parse(time.RFC3339, c.QueryParam("start"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "start must be RFC 3339"})
	}
	end, err := time.Parse(time.RFC3339, c.QueryParam("end"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "end must be RFC 3339"})
	}

	sales, serr := h.service.ByDateRange(ctx, start, end)
	if serr != nil {
		return serr
	}
	return c.JSON(http.StatusOK, salesListResponse{Data: sales})
}

// Record stores a new sale.
//
// @Summary      Record a sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        body  body      recordSaleRequest  true  "Sale details"
// @Success      201   {object}  domain.Sale
// @Failure      400   {object}  map[string]string
// @Router       /api/sales [post]
func (h *SalesHandler) Record(c echo.Context) error {
	var req recordSaleRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	sale := &domain.Sale{Amount: req.Amount, UserID: req.UserID}
	if req.Date != "" {
		date, err := time.Parse(time.RFC3339, req.Date)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "date must be RFC 3339"})
		}
		sale.Date = date.UTC()
	}

	created, err := h.service.Record(c.Request().Context(), sale)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, created)
}
