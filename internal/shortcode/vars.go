package shortcode

import (
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

const dateLayout = "2006-01-02 15:04 MST"

// InquiryVars builds the token map of an inquiry. Every free-form field is
// exposed under its own name; id, type, date and siteName are added on top.
// With escape set, values are HTML-escaped and message newlines become <br>.
func InquiryVars(event *domain.Inquiry, settings domain.Settings, escape bool) map[string]string {
	vars := make(map[string]string, len(event.Fields)+8)
	for key, value := range event.Fields {
		vars[key] = strings.TrimSpace(value)
	}

	vars["id"] = event.ID
	vars["type"] = strings.TrimSpace(event.Type)
	vars["siteName"] = settings.SiteName
	if !event.CreatedAt.IsZero() {
		vars["date"] = event.CreatedAt.UTC().Format(dateLayout)
	}
	for _, key := range []string{
		domain.FieldName, domain.FieldEmail, domain.FieldPhone, domain.FieldCompany,
		domain.FieldMessage, domain.FieldSource, domain.FieldSite, domain.FieldLanguage,
	} {
		if _, ok := vars[key]; !ok {
			vars[key] = ""
		}
	}

	if !escape {
		return vars
	}

	escaped := EscapeVars(vars)
	escaped[domain.FieldMessage] = newlinesToBreaks(escaped[domain.FieldMessage])
	return escaped
}

func newlinesToBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>")
}
