package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"go.uber.org/zap"
)

func newTestInquiryService(t *testing.T, repo *fakeInquiryRepo, ledger *memLedger, publisher *fakePublisher) *InquiryService {
	t.Helper()

	svc, err := NewInquiryService(repo, ledger, publisher, zap.NewNop())
	if err != nil {
		t.Fatalf("NewInquiryService() error = %v", err)
	}
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 9, 30, 0, 0, time.FixedZone("CET", 3600)) }
	return svc
}

func TestInquiryServiceCreate(t *testing.T) {
	t.Parallel()

	var stored *domain.Inquiry
	repo := &fakeInquiryRepo{
		createFn: func(_ context.Context, inquiry *domain.Inquiry) error {
			stored = inquiry
			return nil
		},
	}
	ledger := newMemLedger()
	publisher := &fakePublisher{}
	svc := newTestInquiryService(t, repo, ledger, publisher)

	ctx := observability.WithCorrelationID(context.Background(), "cid-req")
	created, err := svc.Create(ctx, &domain.Inquiry{
		Type:   " contact ",
		Fields: map[string]string{domain.FieldName: "Ada", domain.FieldEmail: "ada@example.com"},
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if created.ID == "" || stored == nil || stored.ID != created.ID {
		t.Fatalf("created = %+v, stored = %+v", created, stored)
	}
	if created.Type != "contact" {
		t.Fatalf("Type = %q, want trimmed", created.Type)
	}
	if created.CorrelationID != "cid-req" {
		t.Fatalf("CorrelationID = %q, want request correlation id", created.CorrelationID)
	}
	if created.CreatedAt.Location() != time.UTC {
		t.Fatalf("CreatedAt = %v, want UTC", created.CreatedAt)
	}

	entry, err := ledger.Get(context.Background(), created.ID)
	if err != nil {
		t.Fatalf("ledger entry missing: %v", err)
	}
	if entry.Admin.Status != domain.DeliveryPending || entry.Customer.Status != domain.DeliveryPending {
		t.Fatalf("ledger entry = %+v, want both pending", entry)
	}

	want := queue.InquiryMessage{InquiryID: created.ID, CorrelationID: "cid-req"}
	if len(publisher.published) != 1 || publisher.published[0] != want {
		t.Fatalf("published = %+v, want %+v", publisher.published, want)
	}
}

func TestInquiryServiceCreateGeneratesCorrelationID(t *testing.T) {
	t.Parallel()

	svc := newTestInquiryService(t, &fakeInquiryRepo{}, newMemLedger(), &fakePublisher{})
	created, err := svc.Create(context.Background(), &domain.Inquiry{Type: "contact"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if created.CorrelationID == "" {
		t.Fatal("expected generated correlation id")
	}
}

func TestInquiryServiceCreateValidation(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{}
	svc := newTestInquiryService(t, &fakeInquiryRepo{}, newMemLedger(), publisher)

	tests := []struct {
		name    string
		inquiry *domain.Inquiry
	}{
		{name: "nil", inquiry: nil},
		{name: "missing type", inquiry: &domain.Inquiry{}},
		{name: "bad email", inquiry: &domain.Inquiry{Type: "contact", Fields: map[string]string{domain.FieldEmail: "nope"}}},
	}
	for _, tt := range tests {
		if _, err := svc.Create(context.Background(), tt.inquiry); !errors.Is(err, domain.ErrValidation) {
			t.Fatalf("%s: Create() error = %v, want ErrValidation", tt.name, err)
		}
	}
	if len(publisher.published) != 0 {
		t.Fatal("invalid inquiries must not be published")
	}
}

func TestInquiryServiceCreatePublishFailureIsTolerated(t *testing.T) {
	t.Parallel()

	publisher := &fakePublisher{
		publishFn: func(context.Context, queue.InquiryMessage) error { return errors.New("broker down") },
	}
	ledger := newMemLedger()
	svc := newTestInquiryService(t, &fakeInquiryRepo{}, ledger, publisher)

	created, err := svc.Create(context.Background(), &domain.Inquiry{Type: "contact"})
	if err != nil {
		t.Fatalf("Create() error = %v, want nil", err)
	}
	if _, err := ledger.Get(context.Background(), created.ID); err != nil {
		t.Fatalf("ledger entry must exist for redelivery: %v", err)
	}
}

func TestInquiryServiceCreateStoreFailure(t *testing.T) {
	t.Parallel()

	repo := &fakeInquiryRepo{
		createFn: func(context.Context, *domain.Inquiry) error { return domain.ErrConflict },
	}
	publisher := &fakePublisher{}
	svc := newTestInquiryService(t, repo, newMemLedger(), publisher)

	if _, err := svc.Create(context.Background(), &domain.Inquiry{Type: "contact"}); !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("Create() error = %v, want ErrConflict", err)
	}
	if len(publisher.published) != 0 {
		t.Fatal("nothing may be published when the store fails")
	}
}

func TestInquiryServiceNotifications(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	ledger.seed(domain.NewLedgerEntry("inq-1", time.Now()))
	svc := newTestInquiryService(t, &fakeInquiryRepo{}, ledger, &fakePublisher{})

	entry, err := svc.Notifications(context.Background(), " inq-1 ")
	if err != nil || entry.EventID != "inq-1" {
		t.Fatalf("Notifications() = %+v, %v", entry, err)
	}
	if _, err := svc.Notifications(context.Background(), "missing"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("Notifications(missing) error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Notifications(context.Background(), ""); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Notifications(\"\") error = %v, want ErrValidation", err)
	}
}
