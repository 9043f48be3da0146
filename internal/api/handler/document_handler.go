package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/staffdesk/ops-system/internal/core/domain"
	"github.com/staffdesk/ops-system/internal/core/ports"
)

type DocumentHandler struct {
	service ports.DocumentService
}

func NewDocumentHandler(service ports.DocumentService) *DocumentHandler {
	return &DocumentHandler{service: service}
}

type uploadDocumentRequest struct {
	Title       string `json:"title"       validate:"required"`
	Type        string `json:"type"        validate:"required"`
	Description string `json:"description" validate:"required"`
	Notes       string `json:"notes"`
	DueDate     string `json:"due_date"    validate:"required"`
}

type documentListResponse struct {
	Data []domain.Document `json:"data"`
}

// List returns the most recent documents.
//
// @Summary      List documents
// @Tags         documents
// @Produce      json
// @Success      200  {object}  documentListResponse
// @Failure      503  {object}  map[string]string
// @Router       /api/documents [get]
func (h *DocumentHandler) List(c echo.Context) error {
	docs, err := h.service.List(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, documentListResponse{Data: docs})
}

// Get returns a single document by id.
//
// @Summary      Get a document
// @Tags         documents
// @Produce      json
// @Param        id   path      string  true  "Document ID"
// @Success      200  {object}  domain.Document
// @Failure      404  {object}  map[string]string
// @Router       /api/documents/{id} [get]
func (h *DocumentHandler) Get(c echo.Context) error {
	doc, err := h.service.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// Upload creates a new pending document.
//
// @Summary      Upload a document
// @Tags         documents
// @Accept       json
// @Produce      json
// @Param        body  body      uploadDocumentRequest  true  "Document details"
// @Success      201   {object}  domain.Document
// @Failure      400   {object}  map[string]string
// @Router       /api/documents [post]
func (h *DocumentHandler) Upload(c echo.Context) error {
	var req uploadDocumentRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid payload"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}

	dueDate, err := time.Parse(time.RFC3339, req.DueDate)
	if err != nil {
		// Date-only input is accepted the way the upload form sends it.
		dueDate, err = time.Parse("2006-01-02", req.DueDate)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "due_date must be RFC 3339 or YYYY-MM-DD"})
		}
	}

	doc, serr := h.service.Upload(c.Request().Context(), ports.UploadDocumentInput{
		Title:       req.Title,
		Type:        req.Type,
		Description: req.Description,
		Notes:       req.Notes,
		DueDate:     dueDate.UTC(),
	})
	if serr != nil {
		return serr
	}
	return c.JSON(http.StatusCreated, doc)
}

// Sign marks a pending document as signed.
//
// @Summary      Sign a document
// @Tags         documents
// @Param        id  path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /api/documents/{id}/sign [post]
func (h *DocumentHandler) Sign(c echo.Context) error {
	if err := h.service.Sign(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// Reject marks a pending document as rejected.
//
// @Summary      Reject a document
// @Tags         documents
// @Param        id  path  string  true  "Document ID"
// @Success      204
// @Failure      404  {object}  map[string]string
// @Failure      422  {object}  map[string]string
// @Router       /api/documents/{id}/reject [post]
func (h *DocumentHandler) Reject(c echo.Context) error {
	if err := h.service.Reject(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
