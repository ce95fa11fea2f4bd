package app

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/evanschultz/filterdeck/internal/domain"
)

// SnapshotVersion defines a package constant value.
const SnapshotVersion = "filterdeck.snapshot.v1"

// Snapshot is a full backup of every subscription and its filters.
type Snapshot struct {
	Version       string                 `json:"version"`
	ExportedAt    time.Time              `json:"exported_at"`
	Subscriptions []SnapshotSubscription `json:"subscriptions"`
	Filters       []SnapshotFilter       `json:"filters"`
}

// SnapshotSubscription represents snapshot subscription data used by this package.
type SnapshotSubscription struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Kind      string    `json:"kind"`
	Disabled  bool      `json:"disabled,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SnapshotFilter represents snapshot filter data used by this package.
type SnapshotFilter struct {
	ID             string     `json:"id"`
	SubscriptionID string     `json:"subscription_id"`
	Position       int        `json:"position"`
	Text           string     `json:"text"`
	Disabled       bool       `json:"disabled,omitempty"`
	HitCount       int        `json:"hit_count,omitempty"`
	LastHitAt      *time.Time `json:"last_hit_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ExportSnapshot captures every subscription and filter in stored order.
func (s *Service) ExportSnapshot(ctx context.Context) (Snapshot, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return Snapshot{}, err
	}
	snap := Snapshot{
		Version:       SnapshotVersion,
		ExportedAt:    s.clock().UTC(),
		Subscriptions: make([]SnapshotSubscription, 0, len(subs)),
		Filters:       make([]SnapshotFilter, 0),
	}
	for _, sub := range subs {
		snap.Subscriptions = append(snap.Subscriptions, snapshotSubscriptionFromDomain(sub))
		filters, listErr := s.repo.ListFilters(ctx, sub.ID)
		if listErr != nil {
			return Snapshot{}, listErr
		}
		for _, f := range filters {
			snap.Filters = append(snap.Filters, snapshotFilterFromDomain(f))
		}
	}
	snap.sort()
	return snap, nil
}

// ImportSnapshot merges a snapshot into the store.
// Known ids are updated in place; snapshot filters end up first in each list, in snapshot order.
func (s *Service) ImportSnapshot(ctx context.Context, snap Snapshot) error {
	if err := snap.Validate(); err != nil {
		return err
	}
	snap.sort()

	for _, sub := range snap.Subscriptions {
		if err := s.upsertSubscription(ctx, sub.toDomain()); err != nil {
			return err
		}
	}

	ordinal := map[string]int{}
	for _, sf := range snap.Filters {
		f := sf.toDomain()
		f.Position = ordinal[f.SubscriptionID]
		ordinal[f.SubscriptionID]++
		if err := s.upsertFilter(ctx, f); err != nil {
			return fmt.Errorf("import filter %q: %w", f.ID, err)
		}
	}
	return nil
}

// Validate validates the requested operation.
func (s *Snapshot) Validate() error {
	if s.Version != "" && s.Version != SnapshotVersion {
		return fmt.Errorf("unsupported snapshot version: %q", s.Version)
	}

	subIDs := map[string]struct{}{}
	for i, sub := range s.Subscriptions {
		if strings.TrimSpace(sub.ID) == "" {
			return fmt.Errorf("subscriptions[%d].id is required", i)
		}
		if strings.TrimSpace(sub.Title) == "" {
			return fmt.Errorf("subscriptions[%d].title is required", i)
		}
		if sub.Kind == "" {
			s.Subscriptions[i].Kind = string(domain.SubscriptionKindUser)
		} else if sub.Kind != string(domain.SubscriptionKindUser) && sub.Kind != string(domain.SubscriptionKindDownload) {
			return fmt.Errorf("subscriptions[%d].kind %q: %w", i, sub.Kind, domain.ErrInvalidKind)
		}
		if _, exists := subIDs[sub.ID]; exists {
			return fmt.Errorf("duplicate subscription id: %q", sub.ID)
		}
		subIDs[sub.ID] = struct{}{}
	}

	filterIDs := map[string]struct{}{}
	for i, f := range s.Filters {
		if strings.TrimSpace(f.ID) == "" {
			return fmt.Errorf("filters[%d].id is required", i)
		}
		if _, ok := subIDs[f.SubscriptionID]; !ok {
			return fmt.Errorf("filters[%d] references unknown subscription_id %q", i, f.SubscriptionID)
		}
		if f.Position < 0 {
			return fmt.Errorf("filters[%d].position must be >= 0", i)
		}
		if _, err := domain.NormalizeFilterText(f.Text); err != nil {
			return fmt.Errorf("filters[%d].text: %w", i, err)
		}
		if f.HitCount < 0 {
			return fmt.Errorf("filters[%d].hit_count must be >= 0", i)
		}
		if _, exists := filterIDs[f.ID]; exists {
			return fmt.Errorf("duplicate filter id: %q", f.ID)
		}
		filterIDs[f.ID] = struct{}{}
	}
	return nil
}

// upsertSubscription creates or updates one subscription.
func (s *Service) upsertSubscription(ctx context.Context, sub domain.Subscription) error {
	if _, err := s.repo.GetSubscription(ctx, sub.ID); err == nil {
		return s.repo.UpdateSubscription(ctx, sub)
	} else if !errors.Is(err, ErrNotFound) {
		return err
	}
	return s.repo.CreateSubscription(ctx, sub)
}

// upsertFilter creates f at f.Position or updates and relocates the stored filter.
func (s *Service) upsertFilter(ctx context.Context, f domain.Filter) error {
	prev, err := s.repo.GetFilter(ctx, f.ID)
	if errors.Is(err, ErrNotFound) {
		return s.repo.InsertFilter(ctx, f)
	}
	if err != nil {
		return err
	}
	if prev.SubscriptionID != f.SubscriptionID {
		return fmt.Errorf("filter belongs to subscription %q: %w", prev.SubscriptionID, domain.ErrInvalidID)
	}
	if err := s.repo.UpdateFilter(ctx, f); err != nil {
		return err
	}
	if prev.Position == f.Position {
		return nil
	}
	return s.repo.MoveFilter(ctx, f.ID, f.Position)
}

// sort orders subscriptions by creation and filters by list then position.
func (s *Snapshot) sort() {
	slices.SortStableFunc(s.Subscriptions, func(a, b SnapshotSubscription) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	subOrder := make(map[string]int, len(s.Subscriptions))
	for i, sub := range s.Subscriptions {
		subOrder[sub.ID] = i
	}
	slices.SortStableFunc(s.Filters, func(a, b SnapshotFilter) int {
		if c := subOrder[a.SubscriptionID] - subOrder[b.SubscriptionID]; c != 0 {
			return c
		}
		return a.Position - b.Position
	})
}

// snapshotSubscriptionFromDomain handles snapshot subscription from domain.
func snapshotSubscriptionFromDomain(sub domain.Subscription) SnapshotSubscription {
	return SnapshotSubscription{
		ID:        sub.ID,
		Title:     sub.Title,
		URL:       sub.URL,
		Kind:      string(sub.Kind),
		Disabled:  sub.Disabled,
		CreatedAt: sub.CreatedAt.UTC(),
		UpdatedAt: sub.UpdatedAt.UTC(),
	}
}

// snapshotFilterFromDomain handles snapshot filter from domain.
func snapshotFilterFromDomain(f domain.Filter) SnapshotFilter {
	out := SnapshotFilter{
		ID:             f.ID,
		SubscriptionID: f.SubscriptionID,
		Position:       f.Position,
		Text:           f.Text,
		Disabled:       f.Disabled,
		HitCount:       f.HitCount,
		CreatedAt:      f.CreatedAt.UTC(),
		UpdatedAt:      f.UpdatedAt.UTC(),
	}
	if f.LastHitAt != nil {
		ts := f.LastHitAt.UTC()
		out.LastHitAt = &ts
	}
	return out
}

// toDomain converts the snapshot record into a domain subscription.
func (sub SnapshotSubscription) toDomain() domain.Subscription {
	return domain.Subscription{
		ID:        strings.TrimSpace(sub.ID),
		Title:     strings.TrimSpace(sub.Title),
		URL:       strings.TrimSpace(sub.URL),
		Kind:      domain.SubscriptionKind(sub.Kind),
		Disabled:  sub.Disabled,
		CreatedAt: sub.CreatedAt.UTC(),
		UpdatedAt: sub.UpdatedAt.UTC(),
	}
}

// toDomain converts the snapshot record into a domain filter.
func (f SnapshotFilter) toDomain() domain.Filter {
	text, _ := domain.NormalizeFilterText(f.Text)
	out := domain.Filter{
		ID:             strings.TrimSpace(f.ID),
		SubscriptionID: strings.TrimSpace(f.SubscriptionID),
		Text:           text,
		Disabled:       f.Disabled,
		HitCount:       f.HitCount,
		Position:       f.Position,
		CreatedAt:      f.CreatedAt.UTC(),
		UpdatedAt:      f.UpdatedAt.UTC(),
	}
	if f.LastHitAt != nil {
		ts := f.LastHitAt.UTC()
		out.LastHitAt = &ts
	}
	return out
}
