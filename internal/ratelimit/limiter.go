package ratelimit

import (
	"context"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

// SendLimiter caps provider calls per dispatch channel across all workers.
type SendLimiter interface {
	Allow(ctx context.Context, channel domain.Channel) (bool, error)
	Wait(ctx context.Context, channel domain.Channel) error
}

// Unlimited never throttles.
type Unlimited struct{}

func (Unlimited) Allow(context.Context, domain.Channel) (bool, error) { return true, nil }

func (Unlimited) Wait(ctx context.Context, _ domain.Channel) error { return ctx.Err() }
