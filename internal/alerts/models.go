package alerts

import "time"

const (
	StatusNew = "new"

	// Event types used when re-broadcasting changed alerts.
	EventUpdated = "alert_update"
	EventDeleted = "alert_deleted"
)

type Alert struct {
	ID        string     `json:"id"`
	Type      string     `json:"type"`
	Severity  string     `json:"severity"`
	Message   string     `json:"message"`
	Source    string     `json:"source,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
	Status    string     `json:"status"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// NewAlert is the input to Store.Create. A zero Timestamp means now.
type NewAlert struct {
	Type      string
	Severity  string
	Message   string
	Source    string
	Timestamp time.Time
}

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Status   string
	Severity string
	Type     string
}

type Stats struct {
	Total      int            `json:"total"`
	BySeverity map[string]int `json:"bySeverity"`
	ByStatus   map[string]int `json:"byStatus"`
	ByType     map[string]int `json:"byType"`
}
