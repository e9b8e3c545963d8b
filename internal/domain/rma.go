package domain

import "time"

// RmaStatus tracks a unit through vendor return handling.
type RmaStatus string

const (
	RmaStatusNew          RmaStatus = "new"
	RmaStatusReceived     RmaStatus = "received"
	RmaStatusSentToVendor RmaStatus = "sent_to_vendor"
	RmaStatusInVendor     RmaStatus = "in_vendor"
	RmaStatusReplaced     RmaStatus = "replaced"
	RmaStatusRepaired     RmaStatus = "repaired"
	RmaStatusRejected     RmaStatus = "rejected"
	RmaStatusReturned     RmaStatus = "returned"
	RmaStatusCancelled    RmaStatus = "cancelled"
)

// RmaActionType drives RMA status changes.
type RmaActionType string

const (
	RmaActionReceiveUnit      RmaActionType = "receive_unit"
	RmaActionSendToVendor     RmaActionType = "send_to_vendor"
	RmaActionVendorUpdate     RmaActionType = "vendor_update"
	RmaActionReplace          RmaActionType = "replace"
	RmaActionRepair           RmaActionType = "repair"
	RmaActionReject           RmaActionType = "reject"
	RmaActionReturnToCustomer RmaActionType = "return_to_customer"
	RmaActionCancel           RmaActionType = "cancel"
)

// RmaAction is one append-only step in an RMA record.
type RmaAction struct {
	Type RmaActionType `json:"type"`
	Note string        `json:"note"`
	By   string        `json:"by"`
	At   time.Time     `json:"at"`
}

// RmaRecord is a return-merchandise authorization.
type RmaRecord struct {
	ID           string
	Code         string
	Title        string
	CustomerName string
	ProductName  string
	ProductSKU   string
	Serial       string
	TicketID     *string
	Status       RmaStatus
	Actions      []RmaAction
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
