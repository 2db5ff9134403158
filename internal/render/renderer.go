// Package render turns a resolved template and an event into the subject and
// HTML that are handed to the provider.
package render

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/markup"
	"github.com/kursadbilgin/inquiry-dispatch/internal/shortcode"
)

type TemplateResolver interface {
	Resolve(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error)
}

// Message is a rendered email.
type Message struct {
	Subject string
	HTML    string
	Text    string
}

type Renderer struct {
	templates TemplateResolver
	md        goldmark.Markdown
	now       func() time.Time
}

func New(templates TemplateResolver) *Renderer {
	return &Renderer{
		templates: templates,
		md: goldmark.New(
			goldmark.WithExtensions(&buttonExtension{}, extension.Table, extension.Strikethrough),
			goldmark.WithRendererOptions(gmhtml.WithUnsafe(), gmhtml.WithHardWraps()),
		),
		now: time.Now,
	}
}

// Inquiry renders the channel's template for an event. Conditionals run
// before substitution; the subject takes raw values and the body takes
// HTML-escaped values.
func (r *Renderer) Inquiry(ctx context.Context, channel domain.Channel, event *domain.Inquiry, settings domain.Settings) (*Message, error) {
	tmpl, err := r.templates.Resolve(ctx, channel, event.Type)
	if err != nil {
		return nil, err
	}

	cond := shortcode.InquiryContext(event)
	subject := shortcode.Resolve(tmpl.Subject, cond, shortcode.InquiryVars(event, settings, false))
	body := shortcode.Resolve(tmpl.Body, cond, shortcode.InquiryVars(event, settings, true))

	subject = cleanSubject(subject)
	if subject == "" {
		return nil, fmt.Errorf("%w: subject of %s is empty after substitution", domain.ErrTemplateEmpty, channel)
	}

	result, err := r.Compile(body, html.EscapeString(subject), markup.ModeSkip)
	if err != nil {
		return nil, err
	}
	if result.HTML == "" {
		return nil, fmt.Errorf("%w: %s template produced no html", domain.ErrCompileFailure, channel)
	}

	return &Message{Subject: subject, HTML: result.HTML, Text: result.Text}, nil
}

// Document renders the document template called name. Fields feed both the
// company conditionals and the tokens.
func (r *Renderer) Document(ctx context.Context, name string, fields map[string]string, settings domain.Settings) (*markup.Result, error) {
	tmpl, err := r.templates.Resolve(ctx, domain.ChannelDocument, name)
	if err != nil {
		return nil, err
	}

	event := &domain.Inquiry{Type: name, Fields: fields, CreatedAt: r.now()}
	body := shortcode.Resolve(tmpl.Body, shortcode.InquiryContext(event), shortcode.InquiryVars(event, settings, true))

	result, err := r.Compile(body, html.EscapeString(name), markup.ModeSoft)
	if err != nil {
		return result, err
	}
	if result.HTML == "" {
		return result, fmt.Errorf("%w: document %q produced no html", domain.ErrCompileFailure, name)
	}
	return result, nil
}

// Compile turns a substituted body into HTML. Markup bodies go straight to
// the compiler; anything else is treated as Markdown or HTML and wrapped in a
// single column layout first.
func (r *Renderer) Compile(body, title string, mode markup.Mode) (*markup.Result, error) {
	if markup.IsMarkup(body) {
		return markup.Compile(body, mode)
	}

	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return nil, fmt.Errorf("%w: convert markdown: %v", domain.ErrCompileFailure, err)
	}
	if strings.TrimSpace(buf.String()) == "" {
		return &markup.Result{}, nil
	}
	return markup.Compile(wrap(buf.String(), title), mode)
}

func wrap(content, title string) string {
	var b strings.Builder
	b.WriteString("<mjml>\n<mj-head>\n")
	if title != "" {
		b.WriteString("<mj-title>" + title + "</mj-title>\n")
	}
	b.WriteString("</mj-head>\n<mj-body>\n<mj-section>\n<mj-column>\n<mj-text>\n")
	b.WriteString(content)
	b.WriteString("</mj-text>\n</mj-column>\n</mj-section>\n</mj-body>\n</mjml>\n")
	return b.String()
}

var subjectReplacer = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ")

// cleanSubject keeps the subject on a single header line.
func cleanSubject(s string) string {
	return strings.TrimSpace(subjectReplacer.Replace(s))
}
