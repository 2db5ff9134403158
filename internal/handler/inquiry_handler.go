package handler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

type InquiryService interface {
	Create(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error)
	GetByID(ctx context.Context, id string) (*domain.Inquiry, error)
	Notifications(ctx context.Context, id string) (*domain.LedgerEntry, error)
}

type InquiryHandler struct {
	service InquiryService
}

func NewInquiryHandler(service InquiryService) (*InquiryHandler, error) {
	if service == nil {
		return nil, fmt.Errorf("inquiry service is required")
	}
	return &InquiryHandler{service: service}, nil
}

func RegisterInquiryRoutes(router fiber.Router, service InquiryService) error {
	h, err := NewInquiryHandler(service)
	if err != nil {
		return err
	}

	v1 := router.Group("/v1")
	v1.Post("/inquiries", h.CreateInquiry)
	v1.Get("/inquiries/:id", h.GetInquiry)
	v1.Get("/inquiries/:id/notifications", h.GetNotifications)

	return nil
}

type createInquiryRequest struct {
	CorrelationID string            `json:"correlationId"`
	Type          string            `json:"type"`
	Fields        map[string]string `json:"fields"`
}

type inquiryResponse struct {
	ID            string            `json:"id"`
	CorrelationID string            `json:"correlationId"`
	Type          string            `json:"type"`
	Fields        map[string]string `json:"fields,omitempty"`
	CreatedAt     time.Time         `json:"createdAt,omitempty"`
}

type channelStateResponse struct {
	Status   string     `json:"status"`
	Attempts int        `json:"attempts"`
	SentAt   *time.Time `json:"sentAt,omitempty"`
	FailedAt *time.Time `json:"failedAt,omitempty"`
	Error    string     `json:"error,omitempty"`
}

type notificationsResponse struct {
	InquiryID string               `json:"inquiryId"`
	Admin     channelStateResponse `json:"admin"`
	Customer  channelStateResponse `json:"customer"`
	UpdatedAt time.Time            `json:"updatedAt"`
}

func (h *InquiryHandler) CreateInquiry(c *fiber.Ctx) error {
	var req createInquiryRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	inquiry := domain.Inquiry{
		CorrelationID: strings.TrimSpace(req.CorrelationID),
		Type:          strings.TrimSpace(req.Type),
		Fields:        req.Fields,
	}
	if inquiry.CorrelationID == "" {
		inquiry.CorrelationID = requestCorrelationID(c)
	}

	created, err := h.service.Create(requestContext(c), &inquiry)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"id":            created.ID,
		"correlationId": created.CorrelationID,
	})
}

func (h *InquiryHandler) GetInquiry(c *fiber.Ctx) error {
	inquiry, err := h.service.GetByID(requestContext(c), strings.TrimSpace(c.Params("id")))
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(inquiryResponse{
		ID:            inquiry.ID,
		CorrelationID: inquiry.CorrelationID,
		Type:          inquiry.Type,
		Fields:        inquiry.Fields,
		CreatedAt:     inquiry.CreatedAt,
	})
}

func (h *InquiryHandler) GetNotifications(c *fiber.Ctx) error {
	id := strings.TrimSpace(c.Params("id"))
	entry, err := h.service.Notifications(requestContext(c), id)
	if err != nil {
		return toHTTPError(err)
	}

	return c.Status(fiber.StatusOK).JSON(notificationsResponse{
		InquiryID: entry.EventID,
		Admin:     toChannelStateResponse(entry.Admin),
		Customer:  toChannelStateResponse(entry.Customer),
		UpdatedAt: entry.UpdatedAt,
	})
}

func toChannelStateResponse(s domain.ChannelState) channelStateResponse {
	return channelStateResponse{
		Status:   s.Status.String(),
		Attempts: s.Attempts,
		SentAt:   s.SentAt,
		FailedAt: s.FailedAt,
		Error:    s.ErrorMessage,
	}
}
