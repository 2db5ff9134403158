package service

import (
	"fmt"
	"html"
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/markup"
	"github.com/kursadbilgin/inquiry-dispatch/internal/observability"
	"github.com/kursadbilgin/inquiry-dispatch/internal/shortcode"
)

// Compiler compiles a substituted body into email HTML.
type Compiler interface {
	Compile(body, title string, mode markup.Mode) (*markup.Result, error)
}

type PreviewRequest struct {
	Subject   string
	Markup    string
	Variables map[string]string
}

type PreviewResult struct {
	HTML    string
	Subject string
	Errors  []string
}

// PreviewService renders unsaved templates for the editor. Previews only
// substitute tokens and always compile in soft mode, so malformed markup is
// reported instead of failing.
type PreviewService struct {
	compiler Compiler
	metrics  *observability.Metrics
}

func NewPreviewService(compiler Compiler) (*PreviewService, error) {
	if compiler == nil {
		return nil, fmt.Errorf("compiler is required")
	}
	return &PreviewService{compiler: compiler}, nil
}

func (s *PreviewService) SetMetrics(metrics *observability.Metrics) {
	if s == nil {
		return
	}
	s.metrics = metrics
}

func (s *PreviewService) Preview(req PreviewRequest) PreviewResult {
	subject := strings.TrimSpace(shortcode.Substitute(req.Subject, req.Variables))
	body := shortcode.Substitute(req.Markup, shortcode.EscapeVars(req.Variables))

	out := PreviewResult{Subject: subject, Errors: []string{}}
	if strings.TrimSpace(body) == "" {
		return out
	}

	result, err := s.compiler.Compile(body, html.EscapeString(subject), markup.ModeSoft)
	if result != nil {
		out.HTML = result.HTML
		out.Errors = append(out.Errors, result.Messages()...)
		s.recordDiagnostics(result)
	}
	if err != nil {
		out.Errors = append(out.Errors, err.Error())
	}
	return out
}

func (s *PreviewService) recordDiagnostics(result *markup.Result) {
	var errs, warnings int
	for _, d := range result.Diagnostics {
		if d.Severity == markup.SeverityError {
			errs++
		} else {
			warnings++
		}
	}
	s.metrics.AddMarkupDiagnostics(string(markup.SeverityError), errs)
	s.metrics.AddMarkupDiagnostics(string(markup.SeverityWarning), warnings)
}
