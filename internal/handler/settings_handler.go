package handler

import (
	"context"
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

type SettingsService interface {
	Snapshot(ctx context.Context) (domain.Settings, error)
	Update(ctx context.Context, settings domain.Settings) (domain.Settings, error)
}

type SettingsHandler struct {
	service SettingsService
}

func NewSettingsHandler(service SettingsService) (*SettingsHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("settings service is required")
	}
	return &SettingsHandler{service: service}, nil
}

func RegisterSettingsRoutes(router fiber.Router, service SettingsService) error {
	h, err := NewSettingsHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Get("/settings", h.GetSettings)
	v1.Put("/settings", h.UpdateSettings)

	return nil
}

type settingsPayload struct {
	CustomerAutoReplyEnabled bool   `json:"customerAutoReplyEnabled"`
	SenderName               string `json:"senderName"`
	SenderEmail              string `json:"senderEmail"`
	AdminRecipient           string `json:"adminRecipient"`
	ReplyToEmail             string `json:"replyToEmail"`
	ReplyToName              string `json:"replyToName"`
	SiteName                 string `json:"siteName"`
}

func (h *SettingsHandler) GetSettings(c *fiber.Ctx) error {
	settings, err := h.service.Snapshot(requestContext(c))
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toSettingsPayload(settings))
}

func (h *SettingsHandler) UpdateSettings(c *fiber.Ctx) error {
	var req settingsPayload
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	updated, err := h.service.Update(requestContext(c), domain.Settings{
		CustomerAutoReplyEnabled: req.CustomerAutoReplyEnabled,
		SenderName:               req.SenderName,
		SenderEmail:              req.SenderEmail,
		AdminRecipient:           req.AdminRecipient,
		ReplyToEmail:             req.ReplyToEmail,
		ReplyToName:              req.ReplyToName,
		SiteName:                 req.SiteName,
	})
	if err != nil {
		return toHTTPError(err)
	}
	return c.Status(fiber.StatusOK).JSON(toSettingsPayload(updated))
}

func toSettingsPayload(s domain.Settings) settingsPayload {
	return settingsPayload{
		CustomerAutoReplyEnabled: s.CustomerAutoReplyEnabled,
		SenderName:               s.SenderName,
		SenderEmail:              s.SenderEmail,
		AdminRecipient:           s.AdminRecipient,
		ReplyToEmail:             s.ReplyToEmail,
		ReplyToName:              s.ReplyToName,
		SiteName:                 s.SiteName,
	}
}
