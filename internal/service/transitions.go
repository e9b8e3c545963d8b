package service

import "github.com/spec-kit/repair-service/internal/domain"

// in_progress has no inbound edge; it only exists on legacy rows.
var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusOpen: {
		domain.TicketStatusAssigned,
		domain.TicketStatusCancelled,
		domain.TicketStatusResolved,
		domain.TicketStatusWaitingForParts,
	},
	domain.TicketStatusAssigned: {
		domain.TicketStatusWaitingForParts,
		domain.TicketStatusResolved,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusInProgress: {
		domain.TicketStatusWaitingForParts,
		domain.TicketStatusResolved,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusWaitingForParts: {
		domain.TicketStatusAssigned,
		domain.TicketStatusResolved,
		domain.TicketStatusCancelled,
	},
	domain.TicketStatusResolved:  {domain.TicketStatusClosed},
	domain.TicketStatusClosed:    {},
	domain.TicketStatusCancelled: {},
}

// CanTransition reports whether the table allows current -> next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions lists the statuses reachable from current.
func AllowedTransitions(current domain.TicketStatus) []domain.TicketStatus {
	out := make([]domain.TicketStatus, len(allowedTransitions[current]))
	copy(out, allowedTransitions[current])
	return out
}

var resolvableStatuses = map[domain.TicketStatus]bool{
	domain.TicketStatusOpen:            true,
	domain.TicketStatusAssigned:        true,
	domain.TicketStatusInProgress:      true,
	domain.TicketStatusWaitingForParts: true,
}

var rmaTransitions = map[domain.RmaStatus]map[domain.RmaActionType]domain.RmaStatus{
	domain.RmaStatusNew: {
		domain.RmaActionReceiveUnit: domain.RmaStatusReceived,
	},
	domain.RmaStatusReceived: {
		domain.RmaActionSendToVendor: domain.RmaStatusSentToVendor,
	},
	domain.RmaStatusSentToVendor: {
		domain.RmaActionVendorUpdate: domain.RmaStatusInVendor,
	},
	domain.RmaStatusInVendor: {
		domain.RmaActionReplace: domain.RmaStatusReplaced,
		domain.RmaActionRepair:  domain.RmaStatusRepaired,
		domain.RmaActionReject:  domain.RmaStatusRejected,
	},
	domain.RmaStatusReplaced: {domain.RmaActionReturnToCustomer: domain.RmaStatusReturned},
	domain.RmaStatusRepaired: {domain.RmaActionReturnToCustomer: domain.RmaStatusReturned},
	domain.RmaStatusRejected: {domain.RmaActionReturnToCustomer: domain.RmaStatusReturned},
}

// NextRmaStatus returns the status an action leads to. Cancel is allowed
// from every non-final status.
func NextRmaStatus(current domain.RmaStatus, action domain.RmaActionType) (domain.RmaStatus, bool) {
	if current == domain.RmaStatusReturned || current == domain.RmaStatusCancelled {
		return "", false
	}
	if action == domain.RmaActionCancel {
		return domain.RmaStatusCancelled, true
	}
	next, ok := rmaTransitions[current][action]
	return next, ok
}
