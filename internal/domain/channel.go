package domain

import (
	"fmt"
	"strings"
)

// Channel identifies a notification target or, for templates, a document kind.
type Channel string

const (
	ChannelAdmin    Channel = "admin"
	ChannelCustomer Channel = "customer"
	// ChannelDocument is template-only; it is never dispatched.
	ChannelDocument Channel = "document"
)

func (c Channel) String() string { return string(c) }

func (c Channel) IsValid() bool {
	switch c {
	case ChannelAdmin, ChannelCustomer, ChannelDocument:
		return true
	}
	return false
}

// IsDispatch reports whether the channel is delivered through the provider.
func (c Channel) IsDispatch() bool {
	return c == ChannelAdmin || c == ChannelCustomer
}

func ParseChannelFromString(s string) (Channel, error) {
	ch := Channel(strings.ToLower(strings.TrimSpace(s)))
	if !ch.IsValid() {
		return "", fmt.Errorf("%w: invalid channel %q", ErrValidation, s)
	}
	return ch, nil
}

// DispatchChannels returns the channels handled for every inquiry, in processing order.
func DispatchChannels() []Channel {
	return []Channel{ChannelAdmin, ChannelCustomer}
}

// DeliveryStatus is the persisted state of one channel of one event.
type DeliveryStatus string

const (
	DeliveryPending DeliveryStatus = "pending"
	DeliverySent    DeliveryStatus = "sent"
	DeliveryError   DeliveryStatus = "error"
)

func (s DeliveryStatus) String() string { return string(s) }

func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryPending, DeliverySent, DeliveryError:
		return true
	}
	return false
}

func ParseDeliveryStatusFromString(s string) (DeliveryStatus, error) {
	st := DeliveryStatus(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", fmt.Errorf("%w: invalid delivery status %q", ErrValidation, s)
	}
	return st, nil
}
