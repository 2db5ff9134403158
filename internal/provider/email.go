package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 15 * time.Second

type contact struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendRequest struct {
	Sender      contact   `json:"sender"`
	To          []contact `json:"to"`
	ReplyTo     *contact  `json:"replyTo,omitempty"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"htmlContent"`
	TextContent string    `json:"textContent,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
}

type sendResult struct {
	MessageID string `json:"messageId"`
}

// EmailAPI posts messages to a transactional email HTTP API authenticated
// with an api-key header. It never retries; redelivery is the caller's job.
type EmailAPI struct {
	client   *resty.Client
	endpoint string
	apiKey   string
}

func NewEmailAPI(endpoint, apiKey string) (*EmailAPI, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)

	return NewEmailAPIWithClient(endpoint, apiKey, client)
}

func NewEmailAPIWithClient(endpoint, apiKey string, client *resty.Client) (*EmailAPI, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("provider endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid provider endpoint: %w", err)
	}
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("provider api key is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &EmailAPI{
		client:   client,
		endpoint: trimmedEndpoint,
		apiKey:   strings.TrimSpace(apiKey),
	}, nil
}

func (p *EmailAPI) Send(ctx context.Context, msg Message) (*Response, error) {
	if p == nil || p.client == nil {
		return nil, fmt.Errorf("provider is not initialized")
	}
	if err := validateMessage(msg); err != nil {
		return nil, err
	}

	response, err := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeader("api-key", p.apiKey).
		SetBody(toRequest(msg)).
		Post(p.endpoint)
	if err != nil {
		return nil, &SendError{Cause: err}
	}
	if response == nil {
		return nil, &SendError{Cause: fmt.Errorf("empty response")}
	}

	statusCode := response.StatusCode()
	body := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: statusCode,
			Body:       body,
			MessageID:  messageID(response),
		}, nil
	}

	return nil, &SendError{StatusCode: statusCode, Body: body}
}

func validateMessage(msg Message) error {
	if strings.TrimSpace(msg.From.Email) == "" {
		return fmt.Errorf("invalid message: sender email is required")
	}
	if len(msg.To) == 0 {
		return fmt.Errorf("invalid message: at least one recipient is required")
	}
	for _, to := range msg.To {
		if strings.TrimSpace(to.Email) == "" {
			return fmt.Errorf("invalid message: recipient email is required")
		}
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("invalid message: subject is required")
	}
	if strings.TrimSpace(msg.HTML) == "" {
		return fmt.Errorf("invalid message: html content is required")
	}
	return nil
}

func toRequest(msg Message) sendRequest {
	req := sendRequest{
		Sender:      contact{Email: msg.From.Email, Name: msg.From.Name},
		To:          make([]contact, 0, len(msg.To)),
		Subject:     msg.Subject,
		HTMLContent: msg.HTML,
		TextContent: msg.Text,
		Tags:        msg.Tags,
	}
	for _, to := range msg.To {
		req.To = append(req.To, contact{Email: to.Email, Name: to.Name})
	}
	if msg.ReplyTo != nil && strings.TrimSpace(msg.ReplyTo.Email) != "" {
		req.ReplyTo = &contact{Email: msg.ReplyTo.Email, Name: msg.ReplyTo.Name}
	}
	return req
}

// messageID reads the provider id from the body or the headers. The message
// is accepted on any 2xx, so a body that is empty or not JSON only costs the id.
func messageID(response *resty.Response) string {
	var result sendResult
	if err := json.Unmarshal(response.Body(), &result); err == nil && strings.TrimSpace(result.MessageID) != "" {
		return strings.TrimSpace(result.MessageID)
	}
	for _, key := range []string{"X-Request-ID", "X-Message-ID"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}
	return ""
}
