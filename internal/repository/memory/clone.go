package memory

import (
	"strings"

	"github.com/spec-kit/repair-service/internal/domain"
)

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	copied := *v
	return &copied
}

func cloneUser(u *domain.User) *domain.User {
	copied := *u
	return &copied
}

func cloneTicket(t *domain.Ticket) *domain.Ticket {
	copied := *t
	copied.DeviceID = clonePtr(t.DeviceID)
	copied.AssigneeID = clonePtr(t.AssigneeID)
	copied.CompletedAt = clonePtr(t.CompletedAt)
	copied.Tags = cloneStrings(t.Tags)
	if t.Diagnostics != nil {
		copied.Diagnostics = make([]domain.Diagnostic, len(t.Diagnostics))
		copy(copied.Diagnostics, t.Diagnostics)
	}
	if t.Actions != nil {
		copied.Actions = make([]domain.RepairAction, len(t.Actions))
		for i, action := range t.Actions {
			action.PartsUsed = append([]domain.PartUsage(nil), action.PartsUsed...)
			copied.Actions[i] = action
		}
	}
	if t.Resolution != nil {
		res := *t.Resolution
		res.Tags = cloneStrings(t.Resolution.Tags)
		copied.Resolution = &res
	}
	return &copied
}

func cloneKnowledge(k *domain.KnowledgeEntry) *domain.KnowledgeEntry {
	copied := *k
	copied.SourceTicketID = clonePtr(k.SourceTicketID)
	copied.RelatedPartIDs = cloneStrings(k.RelatedPartIDs)
	copied.Tags = cloneStrings(k.Tags)
	return &copied
}

func cloneRma(r *domain.RmaRecord) *domain.RmaRecord {
	copied := *r
	copied.TicketID = clonePtr(r.TicketID)
	if r.Actions != nil {
		copied.Actions = make([]domain.RmaAction, len(r.Actions))
		copy(copied.Actions, r.Actions)
	}
	return &copied
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func containsFold(term string, fields ...string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), term) {
			return true
		}
	}
	return false
}
