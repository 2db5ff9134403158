// Package markup compiles the declarative email layout markup operators write
// templates in into self-contained, responsive HTML for email clients.
//
// The markup is a component language:
//
//	<mjml>
//	  <mj-head><mj-title>..</mj-title><mj-preview>..</mj-preview></mj-head>
//	  <mj-body>
//	    <mj-section>
//	      <mj-column>
//	        <mj-text>..</mj-text> <mj-button href="..">..</mj-button>
//	        <mj-image src=".."/> <mj-divider/> <mj-spacer/> <mj-table>..</mj-table>
//	      </mj-column>
//	    </mj-section>
//	  </mj-body>
//	</mjml>
//
// Compilation and validation are done by the MJML engine running in-process.
package markup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Boostport/mjml-go"
)

// ErrInvalidMarkup is returned in ModeStrict when validation reports errors.
var ErrInvalidMarkup = errors.New("invalid markup")

// Mode selects how much validation Compile performs.
type Mode int

const (
	// ModeSkip performs no validation. Used on the send path.
	ModeSkip Mode = iota
	// ModeSoft validates and reports diagnostics but always emits HTML.
	ModeSoft
	// ModeStrict aborts when validation reports an error.
	ModeStrict
)

func (m Mode) String() string {
	switch m {
	case ModeSkip:
		return "skip"
	case ModeSoft:
		return "soft"
	case ModeStrict:
		return "strict"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "skip":
		return ModeSkip, nil
	case "", "soft":
		return ModeSoft, nil
	case "strict":
		return ModeStrict, nil
	}
	return ModeSkip, fmt.Errorf("unknown validation mode %q", s)
}

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Line     int
	Tag      string
	Severity Severity
	Message  string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Line > 0 {
		fmt.Fprintf(&b, "line %d: ", d.Line)
	}
	if d.Tag != "" {
		fmt.Fprintf(&b, "<%s>: ", d.Tag)
	}
	if d.Severity == SeverityWarning {
		b.WriteString("warning: ")
	}
	b.WriteString(d.Message)
	return b.String()
}

// Result is the output of a compilation.
type Result struct {
	HTML        string
	Text        string
	Title       string
	Diagnostics []Diagnostic
}

// Messages returns the diagnostics as display strings.
func (r *Result) Messages() []string {
	if r == nil {
		return nil
	}
	out := make([]string, 0, len(r.Diagnostics))
	for _, d := range r.Diagnostics {
		out = append(out, d.String())
	}
	return out
}

// HasErrors reports whether any diagnostic has error severity.
func (r *Result) HasErrors() bool {
	if r == nil {
		return false
	}
	for _, d := range r.Diagnostics {
		if d.Severity == SeverityError {
			return true
		}
	}
	return false
}

// IsMarkup reports whether body is written in the layout markup rather than
// plain HTML or Markdown.
func IsMarkup(body string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(body)), "<mjml")
}

// Compile turns markup into HTML.
//
// ModeSkip and ModeSoft never return an error; an empty Result.HTML means the
// markup could not be rendered at all. ModeStrict returns ErrInvalidMarkup,
// with the diagnostics and no HTML, when validation finds an error.
func Compile(markup string, mode Mode) (*Result, error) {
	ctx := context.Background()
	result := &Result{}

	if !hasBody(markup) {
		result.Diagnostics = []Diagnostic{{Tag: "mjml", Severity: SeverityError, Message: "document has no mj-body"}}
		return result, strictError(result, mode)
	}

	level := mjml.Skip
	if mode != ModeSkip {
		level = mjml.Soft
	}

	out, err := mjml.ToHTML(ctx, markup, mjml.WithValidationLevel(level))
	if err != nil {
		var compileErr mjml.Error
		if !errors.As(err, &compileErr) || len(compileErr.Details) == 0 {
			result.Diagnostics = []Diagnostic{{Severity: SeverityError, Message: err.Error()}}
			return result, strictError(result, mode)
		}

		result.Diagnostics = diagnostics(compileErr)
		if mode == ModeStrict && result.HasErrors() {
			return result, strictError(result, mode)
		}

		// Soft validation drops the document once it reports anything.
		out, err = mjml.ToHTML(ctx, markup, mjml.WithValidationLevel(mjml.Skip))
		if err != nil {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{Severity: SeverityError, Message: err.Error()})
			return result, strictError(result, mode)
		}
	}

	result.HTML = out
	result.Title, result.Text = extract(out)
	return result, nil
}

func strictError(result *Result, mode Mode) error {
	if mode != ModeStrict || !result.HasErrors() {
		return nil
	}
	return fmt.Errorf("%w: %s", ErrInvalidMarkup, strings.Join(result.Messages(), "; "))
}

// diagnostics maps engine findings. Illegal or mistyped attributes are
// ignored when rendering, so they are warnings; structural findings are
// errors.
func diagnostics(compileErr mjml.Error) []Diagnostic {
	out := make([]Diagnostic, 0, len(compileErr.Details))
	for _, d := range compileErr.Details {
		severity := SeverityError
		if strings.HasPrefix(d.Message, "Attribute ") {
			severity = SeverityWarning
		}
		out = append(out, Diagnostic{
			Line:     d.Line,
			Tag:      d.TagName,
			Severity: severity,
			Message:  d.Message,
		})
	}
	return out
}
