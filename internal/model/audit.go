package model

import "time"

// Audit entities and actions.
const (
	AuditEntityFranchise = "franchise"
	AuditEntityStore     = "store"
	AuditEntityMenuItem  = "menu_item"

	AuditActionCreate = "create"
	AuditActionDelete = "delete"

	AuditOutcomeSuccess = "success"
	AuditOutcomeFailed  = "failed"
)

// AuditEntry records one management action taken through the web front
// end: a franchise, store or menu change.
type AuditEntry struct {
	ID          string    `json:"id"`
	Entity      string    `json:"entity"`
	Action      string    `json:"action"`
	Outcome     string    `json:"outcome"`
	FranchiseID int       `json:"franchise_id,omitempty"`
	StoreID     int       `json:"store_id,omitempty"`
	Name        string    `json:"name"`
	UserID      int       `json:"user_id"`
	RequestID   string    `json:"request_id,omitempty"`
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
