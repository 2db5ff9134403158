package domain

import (
	"fmt"
	"net/mail"
	"strings"
	"time"
)

// Well-known inquiry field keys.
const (
	FieldName     = "name"
	FieldEmail    = "email"
	FieldPhone    = "phone"
	FieldCompany  = "company"
	FieldMessage  = "message"
	FieldSource   = "source"
	FieldSite     = "site"
	FieldLanguage = "language"

	FieldCompanyStatus  = "companyStatus"
	FieldPEP            = "pep"
	FieldRepresentative = "representativeOrigin"
	FieldOwnerCount     = "ownerCount"
)

const (
	MaxInquiryFields     = 50
	MaxInquiryFieldValue = 10000
)

// Inquiry is the business event that triggers notifications. It is immutable
// once created.
type Inquiry struct {
	ID            string
	CorrelationID string
	Type          string
	Fields        map[string]string
	CreatedAt     time.Time
}

// Field returns a trimmed field value, or "" when absent.
func (i *Inquiry) Field(key string) string {
	if i == nil || i.Fields == nil {
		return ""
	}
	return strings.TrimSpace(i.Fields[key])
}

func (i *Inquiry) Name() string  { return i.Field(FieldName) }
func (i *Inquiry) Email() string { return i.Field(FieldEmail) }

func (i *Inquiry) Validate() error {
	if strings.TrimSpace(i.Type) == "" {
		return fmt.Errorf("%w: type is required", ErrValidation)
	}
	if len(i.Fields) > MaxInquiryFields {
		return fmt.Errorf("%w: too many fields (max %d)", ErrValidation, MaxInquiryFields)
	}
	for key, value := range i.Fields {
		if strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: field name is required", ErrValidation)
		}
		if n := len([]rune(value)); n > MaxInquiryFieldValue {
			return fmt.Errorf("%w: field %q exceeds %d characters (got %d)", ErrValidation, key, MaxInquiryFieldValue, n)
		}
	}
	if email := i.Email(); email != "" {
		if _, err := mail.ParseAddress(email); err != nil {
			return fmt.Errorf("%w: invalid email %q", ErrValidation, email)
		}
	}
	return nil
}
