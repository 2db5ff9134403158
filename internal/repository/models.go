package repository

import (
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

// InquiryModel is the persistence model for the inquiries table.
type InquiryModel struct {
	ID            string            `gorm:"type:uuid;primaryKey"`
	CorrelationID string            `gorm:"type:varchar(64);not null"`
	Type          string            `gorm:"type:varchar(100);not null"`
	Fields        map[string]string `gorm:"type:jsonb;serializer:json;not null"`
	CreatedAt     time.Time
}

func (InquiryModel) TableName() string {
	return "inquiries"
}

// TemplateModel is the persistence model for template overrides, keyed by
// channel and scope.
type TemplateModel struct {
	Channel   domain.Channel `gorm:"type:varchar(20);primaryKey"`
	Scope     string         `gorm:"type:varchar(100);primaryKey"`
	Subject   string         `gorm:"type:text;not null"`
	Body      string         `gorm:"type:text;not null"`
	Active    bool           `gorm:"not null"`
	UpdatedAt time.Time
}

func (TemplateModel) TableName() string {
	return "templates"
}

const settingsRowID = 1

// SettingsModel is the single-row operator settings table.
type SettingsModel struct {
	ID                       int    `gorm:"primaryKey;autoIncrement:false"`
	CustomerAutoReplyEnabled bool   `gorm:"not null"`
	SenderName               string `gorm:"type:varchar(255);not null"`
	SenderEmail              string `gorm:"type:varchar(255);not null"`
	AdminRecipient           string `gorm:"type:varchar(255);not null"`
	ReplyToEmail             string `gorm:"type:varchar(255);not null"`
	ReplyToName              string `gorm:"type:varchar(255);not null"`
	SiteName                 string `gorm:"type:varchar(255);not null"`
	UpdatedAt                time.Time
}

func (SettingsModel) TableName() string {
	return "settings"
}

// LedgerModel is one row of notification_ledger: the per-channel delivery
// state of one inquiry.
type LedgerModel struct {
	EventID          string                `gorm:"type:uuid;primaryKey"`
	AdminStatus      domain.DeliveryStatus `gorm:"type:varchar(10);not null"`
	AdminSentAt      *time.Time
	AdminFailedAt    *time.Time
	AdminError       string                `gorm:"type:text;not null"`
	AdminAttempts    int                   `gorm:"not null"`
	CustomerStatus   domain.DeliveryStatus `gorm:"type:varchar(10);not null"`
	CustomerSentAt   *time.Time
	CustomerFailedAt *time.Time
	CustomerError    string `gorm:"type:text;not null"`
	CustomerAttempts int    `gorm:"not null"`
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (LedgerModel) TableName() string {
	return "notification_ledger"
}

func inquiryModelFromDomain(i *domain.Inquiry) *InquiryModel {
	if i == nil {
		return nil
	}
	return &InquiryModel{
		ID:            i.ID,
		CorrelationID: i.CorrelationID,
		Type:          i.Type,
		Fields:        i.Fields,
		CreatedAt:     i.CreatedAt,
	}
}

func inquiryModelToDomain(m *InquiryModel) *domain.Inquiry {
	if m == nil {
		return nil
	}
	fields := m.Fields
	if fields == nil {
		fields = map[string]string{}
	}
	return &domain.Inquiry{
		ID:            m.ID,
		CorrelationID: m.CorrelationID,
		Type:          m.Type,
		Fields:        fields,
		CreatedAt:     m.CreatedAt,
	}
}

func templateModelFromDomain(t *domain.Template) *TemplateModel {
	if t == nil {
		return nil
	}
	return &TemplateModel{
		Channel:   t.Channel,
		Scope:     t.Scope,
		Subject:   t.Subject,
		Body:      t.Body,
		Active:    t.Active,
		UpdatedAt: t.UpdatedAt,
	}
}

func templateModelToDomain(m *TemplateModel) *domain.Template {
	if m == nil {
		return nil
	}
	return &domain.Template{
		Channel:   m.Channel,
		Scope:     m.Scope,
		Subject:   m.Subject,
		Body:      m.Body,
		Active:    m.Active,
		UpdatedAt: m.UpdatedAt,
	}
}

func settingsModelFromDomain(s *domain.Settings) *SettingsModel {
	return &SettingsModel{
		ID:                       settingsRowID,
		CustomerAutoReplyEnabled: s.CustomerAutoReplyEnabled,
		SenderName:               s.SenderName,
		SenderEmail:              s.SenderEmail,
		AdminRecipient:           s.AdminRecipient,
		ReplyToEmail:             s.ReplyToEmail,
		ReplyToName:              s.ReplyToName,
		SiteName:                 s.SiteName,
	}
}

func settingsModelToDomain(m *SettingsModel) *domain.Settings {
	return &domain.Settings{
		CustomerAutoReplyEnabled: m.CustomerAutoReplyEnabled,
		SenderName:               m.SenderName,
		SenderEmail:              m.SenderEmail,
		AdminRecipient:           m.AdminRecipient,
		ReplyToEmail:             m.ReplyToEmail,
		ReplyToName:              m.ReplyToName,
		SiteName:                 m.SiteName,
	}
}

func ledgerModelFromDomain(e *domain.LedgerEntry) *LedgerModel {
	return &LedgerModel{
		EventID:          e.EventID,
		AdminStatus:      e.Admin.Status,
		AdminSentAt:      e.Admin.SentAt,
		AdminFailedAt:    e.Admin.FailedAt,
		AdminError:       e.Admin.ErrorMessage,
		AdminAttempts:    e.Admin.Attempts,
		CustomerStatus:   e.Customer.Status,
		CustomerSentAt:   e.Customer.SentAt,
		CustomerFailedAt: e.Customer.FailedAt,
		CustomerError:    e.Customer.ErrorMessage,
		CustomerAttempts: e.Customer.Attempts,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

func ledgerModelToDomain(m *LedgerModel) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		EventID: m.EventID,
		Admin: domain.ChannelState{
			Status:       m.AdminStatus,
			SentAt:       m.AdminSentAt,
			FailedAt:     m.AdminFailedAt,
			ErrorMessage: m.AdminError,
			Attempts:     m.AdminAttempts,
		},
		Customer: domain.ChannelState{
			Status:       m.CustomerStatus,
			SentAt:       m.CustomerSentAt,
			FailedAt:     m.CustomerFailedAt,
			ErrorMessage: m.CustomerError,
			Attempts:     m.CustomerAttempts,
		},
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}

// ledgerColumns maps a dispatch channel to its column prefix.
func ledgerColumns(channel domain.Channel) (string, bool) {
	switch channel {
	case domain.ChannelAdmin:
		return "admin", true
	case domain.ChannelCustomer:
		return "customer", true
	}
	return "", false
}
