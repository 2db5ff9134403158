package domain

import (
	"fmt"
	"net/mail"
	"strings"
)

// Settings is the operator-controlled configuration snapshot read once per
// dispatch invocation.
type Settings struct {
	CustomerAutoReplyEnabled bool
	SenderName               string
	SenderEmail              string
	AdminRecipient           string
	ReplyToEmail             string
	ReplyToName              string
	SiteName                 string
}

func (s *Settings) Validate() error {
	if strings.TrimSpace(s.SenderEmail) == "" {
		return fmt.Errorf("%w: sender email is required", ErrValidation)
	}
	if strings.TrimSpace(s.AdminRecipient) == "" {
		return fmt.Errorf("%w: admin recipient is required", ErrValidation)
	}
	for label, address := range map[string]string{
		"sender email":    s.SenderEmail,
		"admin recipient": s.AdminRecipient,
		"reply-to email":  s.ReplyToEmail,
	} {
		if strings.TrimSpace(address) == "" {
			continue
		}
		if _, err := mail.ParseAddress(address); err != nil {
			return fmt.Errorf("%w: invalid %s %q", ErrValidation, label, address)
		}
	}
	return nil
}
