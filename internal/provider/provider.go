package provider

import "context"

// Sender is the outbound email delivery port.
type Sender interface {
	Send(ctx context.Context, msg Message) (*Response, error)
}

type Address struct {
	Email string
	Name  string
}

// Message is one transactional email.
type Message struct {
	From    Address
	To      []Address
	ReplyTo *Address
	Subject string
	HTML    string
	Text    string
	Tags    []string
}

// Response is the provider's acknowledgement of an accepted message.
type Response struct {
	StatusCode int
	Body       string
	MessageID  string
}
