package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
	goredis "github.com/redis/go-redis/v9"
)

const (
	ledgerKeyPrefix = "ledger:"
	ledgerIndexKey  = "ledger:open"
	ledgerScanPage  = 200
)

// bootstrapScript creates the entry only when the hash does not exist yet and
// returns the stored fields either way.
var bootstrapScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  redis.call("HSET", KEYS[1],
    "event_id", ARGV[1],
    "admin_status", "pending", "admin_attempts", "0",
    "customer_status", "pending", "customer_attempts", "0",
    "created_at", ARGV[2], "updated_at", ARGV[2])
  redis.call("ZADD", KEYS[2], ARGV[3], ARGV[1])
end
return redis.call("HGETALL", KEYS[1])
`)

// markScript updates one channel. It returns -1 when the entry is missing and
// 0 when a failure would overwrite a sent channel. Delivered entries leave
// the open index here; exhausted ones are pruned by ListRedeliverable.
var markScript = goredis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
  return -1
end
local prefix = ARGV[2]
local statusField = prefix .. "_status"
if ARGV[8] == "1" and redis.call("HGET", KEYS[1], statusField) == "sent" then
  return 0
end
redis.call("HSET", KEYS[1],
  statusField, ARGV[3],
  prefix .. "_" .. ARGV[4], ARGV[5],
  prefix .. "_error", ARGV[6],
  "updated_at", ARGV[5])
redis.call("HINCRBY", KEYS[1], prefix .. "_attempts", 1)
local admin = redis.call("HGET", KEYS[1], "admin_status")
local customer = redis.call("HGET", KEYS[1], "customer_status")
if admin == "sent" and customer ~= "error" then
  redis.call("ZREM", KEYS[2], ARGV[1])
else
  redis.call("ZADD", KEYS[2], ARGV[7], ARGV[1])
end
return 1
`)

// LedgerStore keeps the delivery ledger in Redis: one hash per event plus a
// sorted set of entries that may still need redelivery, scored by last update.
type LedgerStore struct {
	client *goredis.Client
	now    func() time.Time
}

func NewLedgerStore(client *goredis.Client) (*LedgerStore, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	return &LedgerStore{client: client, now: time.Now}, nil
}

func ledgerKey(eventID string) string {
	return ledgerKeyPrefix + eventID
}

func (s *LedgerStore) Bootstrap(ctx context.Context, eventID string) (*domain.LedgerEntry, error) {
	now := s.now().UTC()
	raw, err := bootstrapScript.Run(ctx, s.client,
		[]string{ledgerKey(eventID), ledgerIndexKey},
		eventID, now.Format(time.RFC3339Nano), now.UnixMilli(),
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("bootstrap ledger %s: %w", eventID, err)
	}

	fields := make(map[string]string, len(raw)/2)
	for i := 0; i+1 < len(raw); i += 2 {
		k, _ := raw[i].(string)
		v, _ := raw[i+1].(string)
		fields[k] = v
	}
	return entryFromHash(eventID, fields)
}

func (s *LedgerStore) Get(ctx context.Context, eventID string) (*domain.LedgerEntry, error) {
	fields, err := s.client.HGetAll(ctx, ledgerKey(eventID)).Result()
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return entryFromHash(eventID, fields)
}

func (s *LedgerStore) MarkSent(ctx context.Context, eventID string, channel domain.Channel, at time.Time) error {
	_, err := s.mark(ctx, eventID, channel, domain.DeliverySent, "sent_at", at, "", false)
	return err
}

// MarkFailed returns domain.ErrConflict when the channel was already sent.
func (s *LedgerStore) MarkFailed(ctx context.Context, eventID string, channel domain.Channel, at time.Time, reason string) error {
	_, err := s.mark(ctx, eventID, channel, domain.DeliveryError, "failed_at", at, reason, true)
	return err
}

func (s *LedgerStore) mark(ctx context.Context, eventID string, channel domain.Channel, status domain.DeliveryStatus, tsField string, at time.Time, reason string, keepSent bool) (int, error) {
	if !channel.IsDispatch() {
		return 0, fmt.Errorf("%w: channel %q has no ledger state", domain.ErrValidation, channel)
	}

	guard := "0"
	if keepSent {
		guard = "1"
	}
	at = at.UTC()

	res, err := markScript.Run(ctx, s.client,
		[]string{ledgerKey(eventID), ledgerIndexKey},
		eventID, channel.String(), status.String(), tsField,
		at.Format(time.RFC3339Nano), reason, at.UnixMilli(), guard,
	).Int()
	if err != nil {
		return 0, fmt.Errorf("update ledger %s/%s: %w", eventID, channel, err)
	}

	switch res {
	case -1:
		return res, domain.ErrNotFound
	case 0:
		return res, domain.ErrConflict
	}
	return res, nil
}

// ListRedeliverable walks the open index oldest first, stopping at the
// cutoff, and applies the same filter as the Postgres ledger. Entries with
// nothing left to redeliver, or whose hash is gone, are dropped from the
// index on the way.
func (s *LedgerStore) ListRedeliverable(ctx context.Context, cutoff time.Time, maxAttempts, limit int) ([]domain.LedgerEntry, error) {
	if limit <= 0 {
		return nil, nil
	}

	bound := &goredis.ZRangeBy{
		Min:   "-inf",
		Max:   "(" + strconv.FormatInt(cutoff.UTC().UnixMilli(), 10),
		Count: ledgerScanPage,
	}

	entries := make([]domain.LedgerEntry, 0, limit)
	for len(entries) < limit {
		ids, err := s.client.ZRangeByScore(ctx, ledgerIndexKey, bound).Result()
		if err != nil {
			return nil, err
		}
		if len(ids) == 0 {
			break
		}

		var settled []any
		for _, id := range ids {
			entry, err := s.Get(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				settled = append(settled, id)
				continue
			}
			if err != nil {
				return nil, err
			}
			if !open(entry, maxAttempts) {
				settled = append(settled, id)
				continue
			}

			bound.Offset++
			if entry.UpdatedAt.Before(cutoff) {
				entries = append(entries, *entry)
				if len(entries) == limit {
					break
				}
			}
		}

		if len(settled) > 0 {
			if err := s.client.ZRem(ctx, ledgerIndexKey, settled...).Err(); err != nil {
				return nil, err
			}
		}
		if len(ids) < ledgerScanPage {
			break
		}
	}
	return entries, nil
}

// open reports whether a channel of the entry can still be redelivered.
// Attempts only grow and sent is terminal, so a closed entry stays closed.
func open(e *domain.LedgerEntry, maxAttempts int) bool {
	if e.Admin.Status == domain.DeliveryError && e.Admin.Attempts < maxAttempts {
		return true
	}
	if e.Customer.Status == domain.DeliveryError && e.Customer.Attempts < maxAttempts {
		return true
	}
	return e.Admin.Status == domain.DeliveryPending && e.Admin.Attempts < maxAttempts
}

func entryFromHash(eventID string, h map[string]string) (*domain.LedgerEntry, error) {
	admin, err := channelFromHash(h, "admin")
	if err != nil {
		return nil, err
	}
	customer, err := channelFromHash(h, "customer")
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		EventID:  eventID,
		Admin:    admin,
		Customer: customer,
	}
	if entry.CreatedAt, err = parseTime(h["created_at"]); err != nil {
		return nil, err
	}
	if entry.UpdatedAt, err = parseTime(h["updated_at"]); err != nil {
		return nil, err
	}
	return entry, nil
}

func channelFromHash(h map[string]string, prefix string) (domain.ChannelState, error) {
	status, err := domain.ParseDeliveryStatusFromString(h[prefix+"_status"])
	if err != nil {
		return domain.ChannelState{}, fmt.Errorf("corrupt ledger entry: %w", err)
	}

	state := domain.ChannelState{Status: status, ErrorMessage: h[prefix+"_error"]}
	if v := h[prefix+"_attempts"]; v != "" {
		if state.Attempts, err = strconv.Atoi(v); err != nil {
			return domain.ChannelState{}, fmt.Errorf("corrupt ledger entry: attempts %q", v)
		}
	}
	if v := h[prefix+"_sent_at"]; v != "" {
		t, err := parseTime(v)
		if err != nil {
			return domain.ChannelState{}, err
		}
		state.SentAt = &t
	}
	if v := h[prefix+"_failed_at"]; v != "" {
		t, err := parseTime(v)
		if err != nil {
			return domain.ChannelState{}, err
		}
		state.FailedAt = &t
	}
	return state, nil
}

func parseTime(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupt ledger timestamp %q: %w", v, err)
	}
	return t, nil
}
