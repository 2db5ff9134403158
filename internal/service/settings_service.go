package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
)

// SettingsService serves the operator settings. Values never saved fall back
// to the configured defaults.
type SettingsService struct {
	repo     repository.SettingsRepository
	defaults domain.Settings
}

func NewSettingsService(repo repository.SettingsRepository, defaults domain.Settings) (*SettingsService, error) {
	if repo == nil {
		return nil, fmt.Errorf("settings repository is required")
	}
	return &SettingsService{repo: repo, defaults: defaults}, nil
}

// Snapshot returns the settings in effect right now. Callers take one
// snapshot per dispatch and use it for both channels.
func (s *SettingsService) Snapshot(ctx context.Context) (domain.Settings, error) {
	stored, err := s.repo.Get(ctx)
	if errors.Is(err, domain.ErrNotFound) {
		return s.defaults, nil
	}
	if err != nil {
		return domain.Settings{}, fmt.Errorf("failed to load settings: %w", err)
	}
	return mergeSettings(*stored, s.defaults), nil
}

// Update validates and stores the settings, returning the effective result.
func (s *SettingsService) Update(ctx context.Context, settings domain.Settings) (domain.Settings, error) {
	settings = normalizeSettings(settings)
	effective := mergeSettings(settings, s.defaults)
	if err := effective.Validate(); err != nil {
		return domain.Settings{}, err
	}
	if err := s.repo.Save(ctx, &settings); err != nil {
		return domain.Settings{}, fmt.Errorf("failed to save settings: %w", err)
	}
	return effective, nil
}

func normalizeSettings(s domain.Settings) domain.Settings {
	s.SenderName = strings.TrimSpace(s.SenderName)
	s.SenderEmail = strings.TrimSpace(s.SenderEmail)
	s.AdminRecipient = strings.TrimSpace(s.AdminRecipient)
	s.ReplyToEmail = strings.TrimSpace(s.ReplyToEmail)
	s.ReplyToName = strings.TrimSpace(s.ReplyToName)
	s.SiteName = strings.TrimSpace(s.SiteName)
	return s
}

func mergeSettings(stored, defaults domain.Settings) domain.Settings {
	out := stored
	fill := func(dst *string, def string) {
		if strings.TrimSpace(*dst) == "" {
			*dst = def
		}
	}
	fill(&out.SenderName, defaults.SenderName)
	fill(&out.SenderEmail, defaults.SenderEmail)
	fill(&out.AdminRecipient, defaults.AdminRecipient)
	fill(&out.ReplyToEmail, defaults.ReplyToEmail)
	fill(&out.ReplyToName, defaults.ReplyToName)
	fill(&out.SiteName, defaults.SiteName)
	return out
}
