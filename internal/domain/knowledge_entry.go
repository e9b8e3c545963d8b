package domain

import "time"

// KnowledgeEntry captures a reusable diagnosis/solution pattern.
type KnowledgeEntry struct {
	ID             string
	Title          string
	Symptom        string
	Diagnosis      string
	Solution       string
	SourceTicketID *string
	RelatedPartIDs []string
	Tags           []string
	IsPublished    bool
	CreatedBy      string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
