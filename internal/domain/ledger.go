package domain

import "time"

// ChannelState is the delivery record of a single channel.
type ChannelState struct {
	Status       DeliveryStatus
	SentAt       *time.Time
	FailedAt     *time.Time
	ErrorMessage string
	Attempts     int
}

// LedgerEntry is the per-event delivery ledger. It is the only source of truth
// for whether a channel has already been delivered for an event.
type LedgerEntry struct {
	EventID   string
	Admin     ChannelState
	Customer  ChannelState
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewLedgerEntry returns an entry with every dispatch channel pending.
func NewLedgerEntry(eventID string, now time.Time) LedgerEntry {
	return LedgerEntry{
		EventID:   eventID,
		Admin:     ChannelState{Status: DeliveryPending},
		Customer:  ChannelState{Status: DeliveryPending},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// State returns the state of the given channel. Unknown channels report pending.
func (e *LedgerEntry) State(channel Channel) ChannelState {
	if e == nil {
		return ChannelState{Status: DeliveryPending}
	}
	switch channel {
	case ChannelAdmin:
		return e.Admin
	case ChannelCustomer:
		return e.Customer
	}
	return ChannelState{Status: DeliveryPending}
}

// IsSent reports whether the channel is already delivered.
func (e *LedgerEntry) IsSent(channel Channel) bool {
	return e.State(channel).Status == DeliverySent
}
