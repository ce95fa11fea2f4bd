package domain

import (
	"slices"
	"strings"
	"time"
)

// SubscriptionKind identifies who owns a subscription's filters.
type SubscriptionKind string

// SubscriptionKindUser and related constants define the supported owners.
const (
	SubscriptionKindUser     SubscriptionKind = "user"
	SubscriptionKindDownload SubscriptionKind = "download"
)

var validSubscriptionKinds = []SubscriptionKind{SubscriptionKindUser, SubscriptionKindDownload}

// Subscription groups an ordered list of filters.
type Subscription struct {
	ID        string
	Title     string
	URL       string
	Kind      SubscriptionKind
	Disabled  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewSubscription constructs a new value for this package.
func NewSubscription(id, title, url string, kind SubscriptionKind, now time.Time) (Subscription, error) {
	id = strings.TrimSpace(id)
	title = strings.TrimSpace(title)
	url = strings.TrimSpace(url)
	if id == "" {
		return Subscription{}, ErrInvalidID
	}
	if title == "" {
		return Subscription{}, ErrInvalidTitle
	}
	if kind == "" {
		kind = SubscriptionKindUser
	}
	if !slices.Contains(validSubscriptionKinds, kind) {
		return Subscription{}, ErrInvalidKind
	}
	return Subscription{
		ID:        id,
		Title:     title,
		URL:       url,
		Kind:      kind,
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

// Editable reports whether filters in the subscription may be changed by the user.
func (s Subscription) Editable() bool {
	return s.Kind == SubscriptionKindUser
}

// Rename renames the subscription.
func (s *Subscription) Rename(title string, now time.Time) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrInvalidTitle
	}
	s.Title = title
	s.UpdatedAt = now.UTC()
	return nil
}
