package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/markup"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
	"github.com/kursadbilgin/inquiry-dispatch/internal/templates"
)

const maxTemplateBodyBytes = 256 << 10

var scopePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]{0,63}$`)

// TemplateService manages operator template overrides.
type TemplateService struct {
	repo repository.TemplateRepository
	now  func() time.Time
}

func NewTemplateService(repo repository.TemplateRepository) (*TemplateService, error) {
	if repo == nil {
		return nil, fmt.Errorf("template repository is required")
	}
	return &TemplateService{repo: repo, now: time.Now}, nil
}

// Get returns the stored override, or the built-in default for the global
// scope of a dispatch channel.
func (s *TemplateService) Get(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error) {
	scope, err := normalizeScope(channel, scope)
	if err != nil {
		return nil, err
	}

	tmpl, err := s.repo.Get(ctx, channel, scope)
	if err == nil {
		return tmpl, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("failed to load template: %w", err)
	}

	if scope == domain.ScopeGlobal {
		if def, ok := templates.Default(channel); ok {
			return &def, nil
		}
	}
	return nil, domain.ErrNotFound
}

// Save stores an override and returns the markup warnings found in its body.
// Malformed markup is saved anyway; the operator sees the same diagnostics
// as in a preview.
func (s *TemplateService) Save(ctx context.Context, tmpl domain.Template) (*domain.Template, []string, error) {
	scope, err := normalizeScope(tmpl.Channel, tmpl.Scope)
	if err != nil {
		return nil, nil, err
	}
	tmpl.Scope = scope
	if len(tmpl.Body) > maxTemplateBodyBytes {
		return nil, nil, fmt.Errorf("%w: body exceeds %d bytes", domain.ErrValidation, maxTemplateBodyBytes)
	}
	if tmpl.Channel == domain.ChannelDocument && tmpl.Scope == domain.ScopeGlobal {
		return nil, nil, fmt.Errorf("%w: document templates need a name scope", domain.ErrValidation)
	}

	var diagnostics []string
	if markup.IsMarkup(tmpl.Body) {
		result, err := markup.Compile(tmpl.Body, markup.ModeSoft)
		if err != nil {
			return nil, nil, err
		}
		diagnostics = result.Messages()
	}

	tmpl.UpdatedAt = s.now().UTC()
	if err := s.repo.Upsert(ctx, &tmpl); err != nil {
		return nil, nil, fmt.Errorf("failed to save template: %w", err)
	}
	return &tmpl, diagnostics, nil
}

func normalizeScope(channel domain.Channel, scope string) (string, error) {
	if !channel.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", domain.ErrValidation, channel)
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = domain.ScopeGlobal
	}
	if !scopePattern.MatchString(scope) {
		return "", fmt.Errorf("%w: invalid scope %q", domain.ErrValidation, scope)
	}
	return scope, nil
}
