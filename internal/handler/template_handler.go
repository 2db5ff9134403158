package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/service"
)

type TemplateService interface {
	Get(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error)
	Save(ctx context.Context, tmpl domain.Template) (*domain.Template, []string, error)
}

type PreviewService interface {
	Preview(req service.PreviewRequest) service.PreviewResult
}

type TemplateHandler struct {
	templates TemplateService
	preview   PreviewService
}

func NewTemplateHandler(templates TemplateService, preview PreviewService) (*TemplateHandler, error) {
	if templates == nil {
		return nil, fmt.Errorf("template service is required")
	}
	if preview == nil {
		return nil, fmt.Errorf("preview service is required")
	}
	return &TemplateHandler{templates: templates, preview: preview}, nil
}

func RegisterTemplateRoutes(router fiber.Router, templates TemplateService, preview PreviewService) error {
	h, err := NewTemplateHandler(templates, preview)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/templates/preview", h.Preview)
	v1.Get("/templates/:channel", h.GetTemplate)
	v1.Put("/templates/:channel", h.SaveTemplate)

	return nil
}

type saveTemplateRequest struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Active  *bool  `json:"active"`
}

type templateResponse struct {
	Channel     string    `json:"channel"`
	Scope       string    `json:"scope"`
	Subject     string    `json:"subject"`
	Body        string    `json:"body"`
	Active      bool      `json:"active"`
	UpdatedAt   time.Time `json:"updatedAt,omitempty"`
	Diagnostics []string  `json:"diagnostics,omitempty"`
}

type previewRequest struct {
	Subject   string            `json:"subject"`
	Markup    string            `json:"markup"`
	Variables map[string]string `json:"variables"`
}

type previewResponse struct {
	HTML    string   `json:"html"`
	Subject string   `json:"subject"`
	Errors  []string `json:"errors"`
}

func (h *TemplateHandler) GetTemplate(c *fiber.Ctx) error {
	channel, err := domain.ParseChannelFromString(c.Params("channel"))
	if err != nil {
		return toHTTPError(err)
	}

	tmpl, err := h.templates.Get(requestContext(c), channel, c.Query("scope"))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(tmpl, nil))
}

func (h *TemplateHandler) SaveTemplate(c *fiber.Ctx) error {
	channel, err := domain.ParseChannelFromString(c.Params("channel"))
	if err != nil {
		return toHTTPError(err)
	}

	var req saveTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	tmpl := domain.Template{
		Channel: channel,
		Scope:   strings.TrimSpace(c.Query("scope")),
		Subject: req.Subject,
		Body:    req.Body,
		Active:  true,
	}
	if req.Active != nil {
		tmpl.Active = *req.Active
	}

	saved, diagnostics, err := h.templates.Save(requestContext(c), tmpl)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(toTemplateResponse(saved, diagnostics))
}

func (h *TemplateHandler) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	result := h.preview.Preview(service.PreviewRequest{
		Subject:   req.Subject,
		Markup:    req.Markup,
		Variables: req.Variables,
	})

	errs := result.Errors
	if errs == nil {
		errs = []string{}
	}
	return c.Status(fiber.StatusOK).JSON(previewResponse{
		HTML:    result.HTML,
		Subject: result.Subject,
		Errors:  errs,
	})
}

func toTemplateResponse(t *domain.Template, diagnostics []string) templateResponse {
	if t == nil {
		return templateResponse{}
	}
	return templateResponse{
		Channel:     t.Channel.String(),
		Scope:       t.Scope,
		Subject:     t.Subject,
		Body:        t.Body,
		Active:      t.Active,
		UpdatedAt:   t.UpdatedAt,
		Diagnostics: diagnostics,
	}
}
