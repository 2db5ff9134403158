package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/markup"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
)

// DocumentRenderer renders a stored document template.
type DocumentRenderer interface {
	Document(ctx context.Context, name string, fields map[string]string, settings domain.Settings) (*markup.Result, error)
}

type DocumentResult struct {
	HTML   string
	Errors []string
}

// DocumentService renders named document templates, such as onboarding
// forms, with the company conditionals applied.
type DocumentService struct {
	renderer DocumentRenderer
	settings SettingsSource
	metrics  *observability.Metrics
}

func NewDocumentService(renderer DocumentRenderer, settings SettingsSource) (*DocumentService, error) {
	if renderer == nil {
		return nil, fmt.Errorf("document renderer is required")
	}
	if settings == nil {
		return nil, fmt.Errorf("settings source is required")
	}
	return &DocumentService{renderer: renderer, settings: settings}, nil
}

func (s *DocumentService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

// Render returns the compiled document. Diagnostics are returned alongside
// the HTML; a missing template reports domain.ErrNotFound.
func (s *DocumentService) Render(ctx context.Context, name string, fields map[string]string) (*DocumentResult, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if _, err := normalizeScope(domain.ChannelDocument, name); err != nil || name == domain.ScopeGlobal {
		return nil, fmt.Errorf("%w: invalid document name %q", domain.ErrValidation, name)
	}

	settings, err := s.settings.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	result, err := s.renderer.Document(ctx, name, fields, settings)
	if errors.Is(err, domain.ErrTemplateEmpty) {
		return nil, fmt.Errorf("%w: document %q", domain.ErrNotFound, name)
	}

	out := &DocumentResult{Errors: []string{}}
	if result != nil {
		out.HTML = result.HTML
		out.Errors = append(out.Errors, result.Messages()...)
		for _, d := range result.Diagnostics {
			s.metrics.AddMarkupDiagnostics(string(d.Severity), 1)
		}
	}
	if err != nil {
		return out, err
	}
	return out, nil
}
