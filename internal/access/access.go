// Package access answers "does the caller hold capability C" for mutating
// ledger operations. Callers are identified by requestcontext.Actor; grants
// come from the program file and can be changed at runtime by an admin.
package access

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	id "aurum/pkg/domain"
	dErrors "aurum/pkg/domain-errors"
	audit "aurum/pkg/platform/audit"
	"aurum/pkg/requestcontext"
)

type Capability string

const (
	Admin             Capability = "admin"
	ComplianceOfficer Capability = "compliance_officer"
	Operator          Capability = "operator"
	Keeper            Capability = "keeper"
	Pauser            Capability = "pauser"
	Treasury          Capability = "treasury"
)

var all = []Capability{Admin, ComplianceOfficer, Operator, Keeper, Pauser, Treasury}

// ParseCapability validates a capability name.
func ParseCapability(s string) (Capability, error) {
	c := Capability(s)
	if !slices.Contains(all, c) {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown capability %q", s)
	}
	return c, nil
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Authorizer holds capability grants. Admin implies every other capability.
type Authorizer struct {
	mu     sync.RWMutex
	grants map[Capability]map[id.Address]struct{}

	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Authorizer)

func WithLogger(logger *slog.Logger) Option {
	return func(a *Authorizer) {
		a.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(a *Authorizer) {
		a.auditPublisher = publisher
	}
}

func NewAuthorizer(grants map[Capability][]id.Address, opts ...Option) *Authorizer {
	a := &Authorizer{grants: make(map[Capability]map[id.Address]struct{})}
	for c, actors := range grants {
		for _, actor := range actors {
			a.add(c, actor)
		}
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Authorizer) add(c Capability, actor id.Address) {
	set, ok := a.grants[c]
	if !ok {
		set = make(map[id.Address]struct{})
		a.grants[c] = set
	}
	set[actor] = struct{}{}
}

// Has reports whether actor holds c directly or through admin.
func (a *Authorizer) Has(actor id.Address, c Capability) bool {
	if actor.IsZero() {
		return false
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	if _, ok := a.grants[c][actor]; ok {
		return true
	}
	_, ok := a.grants[Admin][actor]
	return ok
}

// Require fails with CodeUnauthorized when no actor is present and
// CodeForbidden when the actor lacks c. Denials are audited as security events.
func (a *Authorizer) Require(ctx context.Context, c Capability) error {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if a.Has(actor, c) {
		return nil
	}
	a.deny(ctx, actor, string(c))
	return dErrors.Newf(dErrors.CodeForbidden, "actor=%s lacks capability %s", actor, c)
}

// RequireSelfOr passes when the actor is subject or holds any of caps.
func (a *Authorizer) RequireSelfOr(ctx context.Context, subject id.Address, caps ...Capability) error {
	actor := requestcontext.Actor(ctx)
	if actor.IsZero() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if actor == subject {
		return nil
	}
	for _, c := range caps {
		if a.Has(actor, c) {
			return nil
		}
	}
	a.deny(ctx, actor, "self:"+subject.String())
	return dErrors.Newf(dErrors.CodeForbidden, "actor=%s may not act for holder=%s", actor, subject)
}

// Grant adds a capability. Requires admin.
func (a *Authorizer) Grant(ctx context.Context, actor id.Address, c Capability) error {
	if err := a.Require(ctx, Admin); err != nil {
		return err
	}
	a.mu.Lock()
	a.add(c, actor)
	a.mu.Unlock()
	a.logAudit(ctx, "capability_granted", "actor", actor.String(), "capability", string(c))
	return nil
}

// Revoke removes a capability. Requires admin; an admin cannot revoke their
// own admin grant.
func (a *Authorizer) Revoke(ctx context.Context, actor id.Address, c Capability) error {
	if err := a.Require(ctx, Admin); err != nil {
		return err
	}
	if c == Admin && actor == requestcontext.Actor(ctx) {
		return dErrors.New(dErrors.CodeConflict, "admin cannot revoke own admin capability")
	}
	a.mu.Lock()
	delete(a.grants[c], actor)
	a.mu.Unlock()
	a.logAudit(ctx, "capability_revoked", "actor", actor.String(), "capability", string(c))
	return nil
}

// Capabilities lists what actor holds directly.
func (a *Authorizer) Capabilities(actor id.Address) []Capability {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var out []Capability
	for _, c := range all {
		if _, ok := a.grants[c][actor]; ok {
			out = append(out, c)
		}
	}
	return out
}

func (a *Authorizer) deny(ctx context.Context, actor id.Address, wanted string) {
	if a.logger != nil {
		a.logger.WarnContext(ctx, string(audit.EventAccessDenied),
			"actor", actor.String(),
			"wanted", wanted,
			"request_id", requestcontext.RequestID(ctx),
			"event", string(audit.EventAccessDenied),
			"log_type", "audit",
		)
	}
	if a.auditPublisher != nil {
		_ = a.auditPublisher.Emit(ctx, audit.Event{
			Actor:    actor,
			Action:   string(audit.EventAccessDenied),
			Entity:   "actor",
			EntityID: actor.String(),
			Reason:   wanted,
		})
	}
}

func (a *Authorizer) logAudit(ctx context.Context, event string, attributes ...any) {
	if a.logger == nil {
		return
	}
	args := append(attributes, "event", event, "log_type", "audit", "request_id", requestcontext.RequestID(ctx))
	a.logger.InfoContext(ctx, event, args...)
}
