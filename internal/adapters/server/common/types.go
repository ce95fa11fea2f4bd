// Package common provides transport-agnostic server contracts used by HTTP and MCP adapters.
package common

import (
	"context"
	"errors"
	"time"
)

// ErrInvalidRequest reports malformed transport input.
var ErrInvalidRequest = errors.New("invalid request")

// ErrNotFound reports missing transport-visible resources.
var ErrNotFound = errors.New("not found")

// ErrReadOnly reports a mutation against a downloaded subscription.
var ErrReadOnly = errors.New("read-only subscription")

// ErrConflict reports a stale index supplied by a caller.
var ErrConflict = errors.New("index conflict")

// Subscription is the transport view of one filter list.
type Subscription struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Kind      string    `json:"kind"`
	Editable  bool      `json:"editable"`
	Disabled  bool      `json:"disabled"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Filter is the transport view of one filter rule.
type Filter struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	Index          int        `json:"index"`
	Text           string     `json:"text"`
	Disabled       bool       `json:"disabled"`
	Slow           bool       `json:"slow"`
	HitCount       int        `json:"hit_count"`
	LastHitAt      *time.Time `json:"last_hit_at,omitempty"`
}

// ChangeEvent is the transport view of one ledger entry.
type ChangeEvent struct {
	ID         int64             `json:"id"`
	FilterID   string            `json:"filter_id"`
	Operation  string            `json:"operation"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// AddFilterRequest captures input for inserting one filter.
type AddFilterRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Text           string `json:"text"`
	Disabled       bool   `json:"disabled,omitempty"`
	// Position is the insertion index; nil appends.
	Position *int `json:"position,omitempty"`
}

// UpdateFilterRequest captures a text or disabled-flag change of one filter.
type UpdateFilterRequest struct {
	FilterID string  `json:"filter_id"`
	Text     *string `json:"text,omitempty"`
	Disabled *bool   `json:"disabled,omitempty"`
}

// MoveFilterRequest captures one move; From must match the filter's current index.
type MoveFilterRequest struct {
	SubscriptionID string `json:"subscription_id"`
	FilterID       string `json:"filter_id"`
	From           int    `json:"from"`
	To             int    `json:"to"`
}

// RemoveFilterRequest captures one removal; Index must match the filter's current index.
type RemoveFilterRequest struct {
	SubscriptionID string `json:"subscription_id"`
	FilterID       string `json:"filter_id"`
	Index          int    `json:"index"`
}

// RenameSubscriptionRequest captures a new title for one subscription.
type RenameSubscriptionRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Title          string `json:"title"`
}

// RecordHitsRequest captures matches reported for one filter; Count zero means one.
type RecordHitsRequest struct {
	FilterID string `json:"filter_id"`
	Count    int    `json:"count,omitempty"`
}

// FilterReader serves read-only list queries.
type FilterReader interface {
	ListSubscriptions(context.Context) ([]Subscription, error)
	ListFilters(context.Context, string) ([]Filter, error)
	ListChangeEvents(context.Context, string, int) ([]ChangeEvent, error)
}

// FilterService serves list queries and mutations.
type FilterService interface {
	FilterReader
	AddFilter(context.Context, AddFilterRequest) (Filter, error)
	UpdateFilter(context.Context, UpdateFilterRequest) (Filter, error)
	MoveFilter(context.Context, MoveFilterRequest) error
	RemoveFilter(context.Context, RemoveFilterRequest) error
	RenameSubscription(context.Context, RenameSubscriptionRequest) (Subscription, error)
	RecordHits(context.Context, RecordHitsRequest) (Filter, error)
}
