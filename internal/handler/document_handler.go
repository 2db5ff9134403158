package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/service"
)

type DocumentService interface {
	Render(ctx context.Context, name string, fields map[string]string) (*service.DocumentResult, error)
}

type DocumentHandler struct {
	service DocumentService
}

func NewDocumentHandler(service DocumentService) (*DocumentHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("document service is required")
	}
	return &DocumentHandler{service: service}, nil
}

func RegisterDocumentRoutes(router fiber.Router, service DocumentService) error {
	h, err := NewDocumentHandler(service)
	if err != nil {
		return err
	}

	router.Group("/v1").Post("/documents/:name/render", h.RenderDocument)
	return nil
}

type renderDocumentRequest struct {
	Fields map[string]string `json:"fields"`
}

type renderDocumentResponse struct {
	HTML   string   `json:"html"`
	Errors []string `json:"errors"`
}

func (h *DocumentHandler) RenderDocument(c *fiber.Ctx) error {
	var req renderDocumentRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
	}

	result, err := h.service.Render(requestContext(c), c.Params("name"), req.Fields)
	if err != nil {
		return toHTTPError(err)
	}

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(renderDocumentResponse{HTML: result.HTML, Errors: errs})
}
