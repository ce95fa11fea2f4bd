package domain

import "time"

// ChangeOperation describes a persisted activity operation for a filter.
type ChangeOperation string

// ChangeOperation values used by the local activity ledger.
const (
	ChangeOperationAdd    ChangeOperation = "add"
	ChangeOperationUpdate ChangeOperation = "update"
	ChangeOperationMove   ChangeOperation = "move"
	ChangeOperationToggle ChangeOperation = "toggle"
	ChangeOperationRemove ChangeOperation = "remove"
)

// ChangeEvent represents a single activity-log entry for a subscription.
type ChangeEvent struct {
	ID             int64
	SubscriptionID string
	FilterID       string
	Operation      ChangeOperation
	Metadata       map[string]string
	OccurredAt     time.Time
}
