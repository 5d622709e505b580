package admin

import (
	"time"

	"aurum/internal/access"
	audit "aurum/pkg/platform/audit"
)

// CapabilitiesResponse lists the capabilities one actor holds.
type CapabilitiesResponse struct {
	Actor        string   `json:"actor"`
	Capabilities []string `json:"capabilities"`
}

func toCapabilities(actor string, caps []access.Capability) CapabilitiesResponse {
	out := CapabilitiesResponse{Actor: actor, Capabilities: make([]string, 0, len(caps))}
	for _, c := range caps {
		out.Capabilities = append(out.Capabilities, string(c))
	}
	return out
}

// AuditEventResponse is one audit record as exposed to compliance staff.
type AuditEventResponse struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor,omitempty"`
	Action    string    `json:"action"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Before    string    `json:"before,omitempty"`
	After     string    `json:"after,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	RequestID string    `json:"request_id,omitempty"`
}

// AuditTrailResponse wraps a list of audit records.
type AuditTrailResponse struct {
	Events []AuditEventResponse `json:"events"`
	Total  int                  `json:"total"`
}

func toAuditTrail(events []audit.Event) AuditTrailResponse {
	out := AuditTrailResponse{Events: make([]AuditEventResponse, 0, len(events)), Total: len(events)}
	for _, e := range events {
		out.Events = append(out.Events, AuditEventResponse{
			ID:        e.ID.String(),
			Category:  string(e.Category),
			Timestamp: e.Timestamp,
			Actor:     e.Actor.String(),
			Action:    e.Action,
			Entity:    e.Entity,
			EntityID:  e.EntityID,
			Before:    e.Before,
			After:     e.After,
			Reason:    e.Reason,
			RequestID: e.RequestID,
		})
	}
	return out
}
