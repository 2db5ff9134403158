package domain

import (
	"strings"
	"time"
)

// ScopeGlobal is the scope of templates that apply to every event type.
const ScopeGlobal = "global"

// Template is an operator-authored, channel-scoped message or document template.
type Template struct {
	Channel   Channel
	Scope     string
	Subject   string
	Body      string
	Active    bool
	UpdatedAt time.Time
}

// IsBlank reports whether both subject and body are empty after trimming.
func (t *Template) IsBlank() bool {
	if t == nil {
		return true
	}
	return strings.TrimSpace(t.Subject) == "" && strings.TrimSpace(t.Body) == ""
}
