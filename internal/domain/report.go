package domain

// StatusCount is a ticket count per status.
type StatusCount struct {
	Status TicketStatus `json:"status"`
	Count  int          `json:"count"`
}

// TechnicianLoad is a ticket count per assignee.
type TechnicianLoad struct {
	TechnicianID string `json:"technician_id"`
	Username     string `json:"username"`
	FullName     string `json:"full_name"`
	TicketCount  int    `json:"ticket_count"`
}

// PartUsageTotal sums out movements per part.
type PartUsageTotal struct {
	PartID        string `json:"part_id"`
	PartName      string `json:"part_name"`
	TotalQuantity int    `json:"total_quantity"`
}

// IssueCount groups tickets by lower-cased complaint.
type IssueCount struct {
	Complaint   string `json:"complaint"`
	Occurrences int    `json:"occurrences"`
}
