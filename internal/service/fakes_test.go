package service

import (
	"context"
	"sync"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	"github.com/kursadbilgin/inquiry-dispatch/internal/markup"
	"github.com/kursadbilgin/inquiry-dispatch/internal/provider"
	"github.com/kursadbilgin/inquiry-dispatch/internal/queue"
	"github.com/kursadbilgin/inquiry-dispatch/internal/render"
	"github.com/kursadbilgin/inquiry-dispatch/internal/repository"
)

// memLedger keeps ledger entries in memory with the same guarantees as the
// real stores: bootstrap never overwrites and sent is terminal.
type memLedger struct {
	mu      sync.Mutex
	entries map[string]*domain.LedgerEntry

	bootstrapErr error
	markSentErr  error
	markedFailed int
	markedSent   int

	listFn func(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error)
}

var _ repository.LedgerRepository = (*memLedger)(nil)

func newMemLedger() *memLedger {
	return &memLedger{entries: map[string]*domain.LedgerEntry{}}
}

func (l *memLedger) seed(entry domain.LedgerEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.EventID] = &entry
}

func (l *memLedger) Bootstrap(_ context.Context, eventID string) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.bootstrapErr != nil {
		return nil, l.bootstrapErr
	}
	if _, ok := l.entries[eventID]; !ok {
		entry := domain.NewLedgerEntry(eventID, time.Now().UTC())
		l.entries[eventID] = &entry
	}
	copied := *l.entries[eventID]
	return &copied, nil
}

func (l *memLedger) Get(_ context.Context, eventID string) (*domain.LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry, ok := l.entries[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := *entry
	return &copied, nil
}

func (l *memLedger) state(eventID string, channel domain.Channel) (*domain.ChannelState, error) {
	entry, ok := l.entries[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	if channel == domain.ChannelAdmin {
		return &entry.Admin, nil
	}
	return &entry.Customer, nil
}

func (l *memLedger) MarkSent(_ context.Context, eventID string, channel domain.Channel, at time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.markSentErr != nil {
		return l.markSentErr
	}
	st, err := l.state(eventID, channel)
	if err != nil {
		return err
	}
	st.Status = domain.DeliverySent
	st.SentAt = &at
	st.ErrorMessage = ""
	st.Attempts++
	l.markedSent++
	return nil
}

func (l *memLedger) MarkFailed(_ context.Context, eventID string, channel domain.Channel, at time.Time, reason string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	st, err := l.state(eventID, channel)
	if err != nil {
		return err
	}
	if st.Status == domain.DeliverySent {
		return domain.ErrConflict
	}
	st.Status = domain.DeliveryError
	st.FailedAt = &at
	st.ErrorMessage = reason
	st.Attempts++
	l.markedFailed++
	return nil
}

func (l *memLedger) ListRedeliverable(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error) {
	if l.listFn != nil {
		return l.listFn(ctx, cutoff, maxAttempts, limit)
	}
	return nil, nil
}

func (l *memLedger) writes() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.markedFailed + l.markedSent
}

type fakeRenderer struct {
	renderFn func(ctx context.Context, channel domain.Channel, event *domain.Inquiry) (*render.Message, error)
}

func (f *fakeRenderer) Inquiry(ctx context.Context, channel domain.Channel, event *domain.Inquiry, _ domain.Settings) (*render.Message, error) {
	if f.renderFn != nil {
		return f.renderFn(ctx, channel, event)
	}
	return &render.Message{Subject: "subject " + channel.String(), HTML: "<p>" + channel.String() + "</p>"}, nil
}

type fakeSender struct {
	mu     sync.Mutex
	sent   []provider.Message
	sendFn func(ctx context.Context, msg provider.Message) (*provider.Response, error)
}

func (f *fakeSender) Send(ctx context.Context, msg provider.Message) (*provider.Response, error) {
	f.mu.Lock()
	f.sent = append(f.sent, msg)
	f.mu.Unlock()
	if f.sendFn != nil {
		return f.sendFn(ctx, msg)
	}
	return &provider.Response{StatusCode: 201, MessageID: "msg-1"}, nil
}

func (f *fakeSender) calls() []provider.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]provider.Message(nil), f.sent...)
}

type fakeLimiter struct {
	waits  []domain.Channel
	waitFn func(ctx context.Context, channel domain.Channel) error
}

func (f *fakeLimiter) Allow(context.Context, domain.Channel) (bool, error) { return true, nil }

func (f *fakeLimiter) Wait(ctx context.Context, channel domain.Channel) error {
	f.waits = append(f.waits, channel)
	if f.waitFn != nil {
		return f.waitFn(ctx, channel)
	}
	return nil
}

type fakeInquiryRepo struct {
	createFn  func(ctx context.Context, inquiry *domain.Inquiry) error
	getByIDFn func(ctx context.Context, id string) (*domain.Inquiry, error)
}

func (f *fakeInquiryRepo) Create(ctx context.Context, inquiry *domain.Inquiry) error {
	if f.createFn != nil {
		return f.createFn(ctx, inquiry)
	}
	return nil
}

func (f *fakeInquiryRepo) GetByID(ctx context.Context, id string) (*domain.Inquiry, error) {
	if f.getByIDFn != nil {
		return f.getByIDFn(ctx, id)
	}
	return nil, domain.ErrNotFound
}

type fakePublisher struct {
	published []queue.InquiryMessage
	publishFn func(ctx context.Context, msg queue.InquiryMessage) error
}

func (f *fakePublisher) Publish(ctx context.Context, msg queue.InquiryMessage) error {
	if f.publishFn != nil {
		if err := f.publishFn(ctx, msg); err != nil {
			return err
		}
	}
	f.published = append(f.published, msg)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

type fakeConsumer struct {
	consumeFn func(ctx context.Context, handler queue.MessageHandler) error
}

func (f *fakeConsumer) Consume(ctx context.Context, handler queue.MessageHandler) error {
	if f.consumeFn != nil {
		return f.consumeFn(ctx, handler)
	}
	return nil
}

func (f *fakeConsumer) Close() error { return nil }

type fakeSettingsRepo struct {
	stored  *domain.Settings
	getErr  error
	saveErr error
	saved   []domain.Settings
}

func (f *fakeSettingsRepo) Get(context.Context) (*domain.Settings, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.stored == nil {
		return nil, domain.ErrNotFound
	}
	copied := *f.stored
	return &copied, nil
}

func (f *fakeSettingsRepo) Save(_ context.Context, s *domain.Settings) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saved = append(f.saved, *s)
	copied := *s
	f.stored = &copied
	return nil
}

type staticSettings struct {
	settings domain.Settings
	err      error
}

func (s staticSettings) Snapshot(context.Context) (domain.Settings, error) {
	return s.settings, s.err
}

type fakeTemplateRepo struct {
	templates map[string]*domain.Template
	getErr    error
	upserted  []domain.Template
}

func (f *fakeTemplateRepo) Get(_ context.Context, channel domain.Channel, scope string) (*domain.Template, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if t, ok := f.templates[channel.String()+"/"+scope]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, domain.ErrNotFound
}

func (f *fakeTemplateRepo) Upsert(_ context.Context, t *domain.Template) error {
	f.upserted = append(f.upserted, *t)
	return nil
}

type fakeDocumentRenderer struct {
	documentFn func(ctx context.Context, name string, fields map[string]string, settings domain.Settings) (*markup.Result, error)
}

func (f *fakeDocumentRenderer) Document(ctx context.Context, name string, fields map[string]string, settings domain.Settings) (*markup.Result, error) {
	return f.documentFn(ctx, name, fields, settings)
}

func testSettings() domain.Settings {
	return domain.Settings{
		CustomerAutoReplyEnabled: true,
		SenderName:               "Website",
		SenderEmail:              "no-reply@example.com",
		AdminRecipient:           "sales@example.com",
		ReplyToEmail:             "hello@example.com",
		ReplyToName:              "Example Team",
		SiteName:                 "Example",
	}
}

func testInquiry() domain.Inquiry {
	return domain.Inquiry{
		ID:            "inq-1",
		CorrelationID: "cid-1",
		Type:          "Contact",
		Fields: map[string]string{
			domain.FieldName:    "Ada Lovelace",
			domain.FieldEmail:   "ada@example.com",
			domain.FieldMessage: "Hello",
		},
		CreatedAt: time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC),
	}
}
