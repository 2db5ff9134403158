package shortcode

import (
	"regexp"
	"strings"
)

var tokenPattern = regexp.MustCompile(`\{\{\s*([A-Za-z0-9_.\-]+)\s*\}\}`)

var htmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&#39;",
)

// Substitute replaces every {{key}} in body with vars[key]. Unknown keys are
// replaced by the empty string. Values are inserted verbatim.
func Substitute(body string, vars map[string]string) string {
	if body == "" || !strings.Contains(body, "{{") {
		return body
	}

	return tokenPattern.ReplaceAllStringFunc(body, func(match string) string {
		key := tokenPattern.FindStringSubmatch(match)[1]
		return vars[key]
	})
}

// EscapeHTML entity-escapes & < > " and '.
func EscapeHTML(s string) string {
	return htmlEscaper.Replace(s)
}

// EscapeVars returns a copy of vars with every value HTML-escaped.
func EscapeVars(vars map[string]string) map[string]string {
	escaped := make(map[string]string, len(vars))
	for key, value := range vars {
		escaped[key] = EscapeHTML(value)
	}
	return escaped
}

// Resolve applies conditionals and then substitutes tokens.
func Resolve(body string, ctx Context, vars map[string]string) string {
	return Substitute(ApplyConditionals(body, ctx), vars)
}
