// Package templates resolves which subject and body a channel renders with.
package templates

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kursadbilgin/inquiry-dispatch/internal/domain"
)

// Store reads operator overrides. Get returns domain.ErrNotFound when no
// override exists for the pair.
type Store interface {
	Get(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error)
}

type Resolver struct {
	store Store
}

func NewResolver(store Store) *Resolver {
	return &Resolver{store: store}
}

// Resolve returns the template for channel and scope. Overrides are looked up
// for the scope first, then the global scope, then the built-in default.
// An inactive or blank override counts as absent, and a single empty field
// falls back to the default's field. The store is read on every call.
func (r *Resolver) Resolve(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error) {
	if !channel.IsValid() {
		return nil, fmt.Errorf("%w: unknown channel %q", domain.ErrTemplateEmpty, channel)
	}

	scope = strings.TrimSpace(scope)
	if scope == "" {
		scope = domain.ScopeGlobal
	}

	override, err := r.lookup(ctx, channel, scope)
	if err != nil {
		return nil, err
	}

	def, hasDefault := Default(channel)
	resolved := &domain.Template{Channel: channel, Scope: domain.ScopeGlobal, Active: true}

	switch {
	case override != nil:
		resolved.Scope = override.Scope
		resolved.UpdatedAt = override.UpdatedAt
		resolved.Subject = override.Subject
		resolved.Body = override.Body
		if hasDefault {
			if strings.TrimSpace(resolved.Subject) == "" {
				resolved.Subject = def.Subject
			}
			if strings.TrimSpace(resolved.Body) == "" {
				resolved.Body = def.Body
			}
		}
	case hasDefault:
		resolved.Subject = def.Subject
		resolved.Body = def.Body
	}

	if strings.TrimSpace(resolved.Body) == "" {
		return nil, fmt.Errorf("%w: no body for %s/%s", domain.ErrTemplateEmpty, channel, scope)
	}
	if channel.IsDispatch() && strings.TrimSpace(resolved.Subject) == "" {
		return nil, fmt.Errorf("%w: no subject for %s/%s", domain.ErrTemplateEmpty, channel, scope)
	}
	return resolved, nil
}

func (r *Resolver) lookup(ctx context.Context, channel domain.Channel, scope string) (*domain.Template, error) {
	scopes := []string{scope}
	if scope != domain.ScopeGlobal {
		scopes = append(scopes, domain.ScopeGlobal)
	}

	for _, s := range scopes {
		t, err := r.store.Get(ctx, channel, s)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load template %s/%s: %w", channel, s, err)
		}
		if t == nil || !t.Active || t.IsBlank() {
			continue
		}
		return t, nil
	}
	return nil, nil
}
