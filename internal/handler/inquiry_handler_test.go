package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
)

type stubInquiryService struct {
	createFn        func(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error)
	getByIDFn       func(ctx context.Context, id string) (*domain.Inquiry, error)
	notificationsFn func(ctx context.Context, id string) (*domain.LedgerEntry, error)
}

func (s *stubInquiryService) Create(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error) {
	if s.createFn != nil {
		return s.createFn(ctx, inquiry)
	}
	return nil, errors.New("not implemented")
}

func (s *stubInquiryService) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	if s.getByIDFn != nil {
		return s.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func (s *stubInquiryService) Notifications(ctx context.Context, id string) (*domain.LedgerEntry, error) {
	if s.notificationsFn != nil {
		return s.notificationsFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

func newInquiryTestApp(t *testing.T, svc InquiryService) *fiber.App {
	t.Helper()
	return newTestApp(t, func(app *fiber.App) error {
		return RegisterInquiryRoutes(app, svc)
	})
}

func TestNewInquiryHandlerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewInquiryHandler(nil); err == nil {
		t.Fatal("expected error for nil service")
	}
}

func TestInquiryHandlerCreate(t *testing.T) {
	t.Parallel()

	var got domain.Inquiry
	var ctxCorrelation string
	svc := &stubInquiryService{
		createFn: func(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error) {
			if err := inquiry.Validate(); err != nil {
				return nil, err
			}
			got = *inquiry
			ctxCorrelation, _ = observability.CorrelationIDFromContext(ctx)
			inquiry.ID = "inq-created"
			return inquiry, nil
		},
	}
	app := newInquiryTestApp(t, svc)

	body := `{"type":"Contact","fields":{"name":"Ada","email":"ada@example.com","message":"hello"}}`
	resp, respBody := performRequest(t, app, http.MethodPost, "/v1/inquiries", body)
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202, body=%s", resp.StatusCode, string(respBody))
	}

	var accepted map[string]any
	if err := json.Unmarshal(respBody, &accepted); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if accepted["id"] != "inq-created" {
		t.Fatalf("id = %v, want inq-created", accepted["id"])
	}
	if got.Type != "Contact" || got.Fields["email"] != "ada@example.com" {
		t.Fatalf("service received %+v", got)
	}
	if ctxCorrelation != "" {
		t.Fatalf("context correlation = %q, want empty without header", ctxCorrelation)
	}

	invalid := `{"type":"Contact","fields":{"email":"not-an-address"}}`
	resp, _ = performRequest(t, app, http.MethodPost, "/v1/inquiries", invalid)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for invalid email", resp.StatusCode)
	}

	resp, _ = performRequest(t, app, http.MethodPost, "/v1/inquiries", `{"type":`)
	if resp.StatusCode != fiber.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for malformed body", resp.StatusCode)
	}
}

func TestInquiryHandlerCreateUsesRequestID(t *testing.T) {
	t.Parallel()

	var got string
	var ctxCorrelation string
	svc := &stubInquiryService{
		createFn: func(ctx context.Context, inquiry *domain.Inquiry) (*domain.Inquiry, error) {
			got = inquiry.CorrelationID
			ctxCorrelation, _ = observability.CorrelationIDFromContext(ctx)
			inquiry.ID = "inq-1"
			return inquiry, nil
		},
	}
	app := newInquiryTestApp(t, svc)

	req := newJSONRequest(http.MethodPost, "/v1/inquiries", `{"type":"Contact"}`)
	req.Header.Set(fiber.HeaderXRequestID, "req-42")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test() error = %v", err)
	}
	_ = resp.Body.Close()

	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want 202", resp.StatusCode)
	}
	if got != "req-42" || ctxCorrelation != "req-42" {
		t.Fatalf("correlation = %q (ctx %q), want req-42", got, ctxCorrelation)
	}
}

func TestInquiryHandlerCreateInternalError(t *testing.T) {
	t.Parallel()

	svc := &stubInquiryService{
		createFn: func(context.Context, *domain.Inquiry) (*domain.Inquiry, error) {
			return nil, errors.New("connection reset")
		},
	}
	app := newInquiryTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodPost, "/v1/inquiries", `{"type":"Contact"}`)
	if resp.StatusCode != fiber.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", resp.StatusCode)
	}
	if string(body) != `{"error":"internal server error"}` {
		t.Fatalf("body = %s, want masked error", string(body))
	}
}

func TestInquiryHandlerGetAndNotifications(t *testing.T) {
	t.Parallel()

	sentAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	svc := &stubInquiryService{
		getByIDFn: func(_ context.Context, id string) (*domain.Inquiry, error) {
			if id != "inq-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.Inquiry{ID: "inq-1", CorrelationID: "cid-1", Type: "Contact"}, nil
		},
		notificationsFn: func(_ context.Context, id string) (*domain.LedgerEntry, error) {
			if id != "inq-1" {
				return nil, domain.ErrNotFound
			}
			return &domain.LedgerEntry{
				EventID:  "inq-1",
				Admin:    domain.ChannelState{Status: domain.DeliverySent, SentAt: &sentAt, Attempts: 1},
				Customer: domain.ChannelState{Status: domain.DeliveryError, Attempts: 2, ErrorMessage: "rate limited"},
			}, nil
		},
	}
	app := newInquiryTestApp(t, svc)

	resp, body := performRequest(t, app, http.MethodGet, "/v1/inquiries/inq-1", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}

	resp, body = performRequest(t, app, http.MethodGet, "/v1/inquiries/inq-1/notifications", "")
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want 200, body=%s", resp.StatusCode, string(body))
	}
	var got notificationsResponse
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("json unmarshal error = %v", err)
	}
	if got.Admin.Status != "sent" || got.Admin.SentAt == nil {
		t.Fatalf("admin = %+v, want sent with timestamp", got.Admin)
	}
	if got.Customer.Status != "error" || got.Customer.Error != "rate limited" || got.Customer.Attempts != 2 {
		t.Fatalf("customer = %+v", got.Customer)
	}

	resp, _ = performRequest(t, app, http.MethodGet, "/v1/inquiries/missing/notifications", "")
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want 404", resp.StatusCode)
	}
}
