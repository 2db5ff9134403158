package service

import (
	"context"
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"go.uber.org/zap"
)

func TestNewRedeliveryScannerValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewRedeliveryScanner(nil, &fakePublisher{}, 0, 0, 0, zap.NewNop()); err == nil {
		t.Fatal("expected error when ledger is nil")
	}
	if _, err := NewRedeliveryScanner(newMemLedger(), nil, 0, 0, 0, zap.NewNop()); err == nil {
		t.Fatal("expected error when publisher is nil")
	}

	s, err := NewRedeliveryScanner(newMemLedger(), &fakePublisher{}, 0, 0, 0, nil)
	if err != nil {
		t.Fatalf("NewRedeliveryScanner() error = %v", err)
	}
	if s.interval != defaultRedeliveryScanInterval || s.staleAfter != defaultRedeliveryStaleAfter || s.maxAttempts != 8 {
		t.Fatalf("defaults = %v/%v/%d", s.interval, s.staleAfter, s.maxAttempts)
	}
}

func TestRedeliveryScannerScanPublishes(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	ledger := newMemLedger()
	ledger.listFn = func(_ context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error) {
		if !cutoff.Equal(now.Add(-10 * time.Minute)) {
			t.Fatalf("cutoff = %v", cutoff)
		}
		if maxAttempts != 5 || limit != defaultRedeliveryScanLimit {
			t.Fatalf("maxAttempts=%d limit=%d", maxAttempts, limit)
		}
		return []domain.LedgerEntry{
			domain.NewLedgerEntry("inq-1", now),
			domain.NewLedgerEntry("inq-2", now),
		}, nil
	}

	publisher := &fakePublisher{}
	s, err := NewRedeliveryScanner(ledger, publisher, time.Second, 10*time.Minute, 5, zap.NewNop())
	if err != nil {
		t.Fatalf("NewRedeliveryScanner() error = %v", err)
	}
	s.now = func() time.Time { return now }
	metrics := observability.NewMetrics()
	s.SetMetrics(metrics)

	n, err := s.scan(context.Background())
	if err != nil {
		t.Fatalf("scan() error = %v", err)
	}
	if n != 2 {
		t.Fatalf("published = %d, want 2", n)
	}
	want := []queue.InquiryMessage{{InquiryID: "inq-1"}, {InquiryID: "inq-2"}}
	for i := range want {
		if publisher.published[i] != want[i] {
			t.Fatalf("published[%d] = %+v, want %+v", i, publisher.published[i], want[i])
		}
	}

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "inquiry_dispatch_redeliveries_published_total 2") {
		t.Fatal("redeliveries metric should report 2")
	}
}

func TestRedeliveryScannerContinuesAfterPublishFailure(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	ledger.listFn = func(context.Context, time.Time, int, int) ([]domain.LedgerEntry, error) {
		return []domain.LedgerEntry{
			domain.NewLedgerEntry("inq-bad", time.Now()),
			domain.NewLedgerEntry("inq-good", time.Now()),
		}, nil
	}
	publisher := &fakePublisher{
		publishFn: func(_ context.Context, msg queue.InquiryMessage) error {
			if msg.InquiryID == "inq-bad" {
				return errors.New("broker nack")
			}
			return nil
		},
	}

	s, _ := NewRedeliveryScanner(ledger, publisher, time.Second, time.Minute, 3, zap.NewNop())
	n, err := s.scan(context.Background())
	if err != nil {
		t.Fatalf("scan() error = %v", err)
	}
	if n != 1 || len(publisher.published) != 1 || publisher.published[0].InquiryID != "inq-good" {
		t.Fatalf("published = %+v", publisher.published)
	}
}

func TestRedeliveryScannerListFailure(t *testing.T) {
	t.Parallel()

	ledger := newMemLedger()
	ledger.listFn = func(context.Context, time.Time, int, int) ([]domain.LedgerEntry, error) {
		return nil, errors.New("db down")
	}
	s, _ := NewRedeliveryScanner(ledger, &fakePublisher{}, time.Second, time.Minute, 3, zap.NewNop())

	if _, err := s.scan(context.Background()); err == nil {
		t.Fatal("expected list error")
	}
}

func TestRedeliveryScannerStartStopsOnCancel(t *testing.T) {
	t.Parallel()

	scanned := make(chan struct{}, 1)
	ledger := newMemLedger()
	ledger.listFn = func(context.Context, time.Time, int, int) ([]domain.LedgerEntry, error) {
		select {
		case scanned <- struct{}{}:
		default:
		}
		return nil, nil
	}
	s, _ := NewRedeliveryScanner(ledger, &fakePublisher{}, time.Hour, time.Minute, 3, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	select {
	case <-scanned:
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not run")
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start() did not stop after cancel")
	}
}
