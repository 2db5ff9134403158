package service

import (
	"context"
	"errors"
	"testing"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

func TestSettingsServiceSnapshot(t *testing.T) {
	t.Parallel()

	defaults := testSettings()

	t.Run("defaults when never saved", func(t *testing.T) {
		t.Parallel()

		svc, _ := NewSettingsService(&fakeSettingsRepo{}, defaults)
		got, err := svc.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got != defaults {
			t.Fatalf("Snapshot() = %+v, want defaults", got)
		}
	})

	t.Run("stored values win, blanks fall back", func(t *testing.T) {
		t.Parallel()

		repo := &fakeSettingsRepo{stored: &domain.Settings{
			CustomerAutoReplyEnabled: false,
			AdminRecipient:           "ops@example.com",
		}}
		svc, _ := NewSettingsService(repo, defaults)
		got, err := svc.Snapshot(context.Background())
		if err != nil {
			t.Fatalf("Snapshot() error = %v", err)
		}
		if got.CustomerAutoReplyEnabled {
			t.Fatal("stored auto-reply toggle must win over the default")
		}
		if got.AdminRecipient != "ops@example.com" {
			t.Fatalf("AdminRecipient = %q", got.AdminRecipient)
		}
		if got.SenderEmail != defaults.SenderEmail || got.SiteName != defaults.SiteName {
			t.Fatalf("blank fields should fall back: %+v", got)
		}
	})

	t.Run("store failure", func(t *testing.T) {
		t.Parallel()

		svc, _ := NewSettingsService(&fakeSettingsRepo{getErr: errors.New("db down")}, defaults)
		if _, err := svc.Snapshot(context.Background()); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestSettingsServiceUpdate(t *testing.T) {
	t.Parallel()

	repo := &fakeSettingsRepo{}
	svc, err := NewSettingsService(repo, testSettings())
	if err != nil {
		t.Fatalf("NewSettingsService() error = %v", err)
	}

	got, err := svc.Update(context.Background(), domain.Settings{
		CustomerAutoReplyEnabled: true,
		AdminRecipient:           "  ops@example.com ",
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	if got.AdminRecipient != "ops@example.com" || got.SenderEmail != "no-reply@example.com" {
		t.Fatalf("Update() = %+v", got)
	}
	if len(repo.saved) != 1 || repo.saved[0].SenderEmail != "" {
		t.Fatalf("saved = %+v, want only the operator's values", repo.saved)
	}

	if _, err := svc.Update(context.Background(), domain.Settings{ReplyToEmail: "not-an-address"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("Update() error = %v, want ErrValidation", err)
	}
	if len(repo.saved) != 1 {
		t.Fatal("invalid settings must not be saved")
	}
}

func TestNewSettingsServiceValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewSettingsService(nil, domain.Settings{}); err == nil {
		t.Fatal("expected error when repository is nil")
	}
}
