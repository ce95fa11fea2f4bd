package common

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/evanschultz/filterdeck/internal/app"
	"github.com/evanschultz/filterdeck/internal/domain"
)

// defaultChangeLimit bounds change-event queries without an explicit limit.
const defaultChangeLimit = 50

// maxChangeLimit caps caller-supplied change-event limits.
const maxChangeLimit = 500

// AppServiceAdapter maps transport contracts onto app.Service.
type AppServiceAdapter struct {
	service *app.Service
}

// NewAppServiceAdapter builds one common adapter over an app.Service instance.
func NewAppServiceAdapter(service *app.Service) *AppServiceAdapter {
	return &AppServiceAdapter{service: service}
}

// ListSubscriptions lists every subscription.
func (a *AppServiceAdapter) ListSubscriptions(ctx context.Context) ([]Subscription, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	subs, err := a.service.ListSubscriptions(ctx)
	if err != nil {
		return nil, mapAppError("list subscriptions", err)
	}
	out := make([]Subscription, 0, len(subs))
	for _, sub := range subs {
		out = append(out, mapSubscription(sub))
	}
	return out, nil
}

// ListFilters lists a subscription's filters in stored order.
func (a *AppServiceAdapter) ListFilters(ctx context.Context, subscriptionID string) ([]Filter, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	subscriptionID, err := requireID("subscription_id", subscriptionID)
	if err != nil {
		return nil, err
	}
	if _, err := a.service.GetSubscription(ctx, subscriptionID); err != nil {
		return nil, mapAppError("get subscription", err)
	}
	filters, err := a.service.ListFilters(ctx, subscriptionID)
	if err != nil {
		return nil, mapAppError("list filters", err)
	}
	out := make([]Filter, 0, len(filters))
	for idx, f := range filters {
		out = append(out, mapFilter(f, idx))
	}
	return out, nil
}

// ListChangeEvents lists the newest ledger entries of a subscription.
func (a *AppServiceAdapter) ListChangeEvents(ctx context.Context, subscriptionID string, limit int) ([]ChangeEvent, error) {
	if err := a.ready(); err != nil {
		return nil, err
	}
	subscriptionID, err := requireID("subscription_id", subscriptionID)
	if err != nil {
		return nil, err
	}
	switch {
	case limit < 0:
		return nil, fmt.Errorf("limit must be positive: %w", ErrInvalidRequest)
	case limit == 0:
		limit = defaultChangeLimit
	case limit > maxChangeLimit:
		limit = maxChangeLimit
	}
	events, err := a.service.ListChangeEvents(ctx, subscriptionID, limit)
	if err != nil {
		return nil, mapAppError("list change events", err)
	}
	out := make([]ChangeEvent, 0, len(events))
	for _, ev := range events {
		out = append(out, ChangeEvent{
			ID:         ev.ID,
			FilterID:   ev.FilterID,
			Operation:  string(ev.Operation),
			Metadata:   ev.Metadata,
			OccurredAt: ev.OccurredAt,
		})
	}
	return out, nil
}

// AddFilter inserts one filter into an editable subscription.
func (a *AppServiceAdapter) AddFilter(ctx context.Context, in AddFilterRequest) (Filter, error) {
	if err := a.ready(); err != nil {
		return Filter{}, err
	}
	subscriptionID, err := requireID("subscription_id", in.SubscriptionID)
	if err != nil {
		return Filter{}, err
	}
	position := -1
	if in.Position != nil {
		if *in.Position < 0 {
			return Filter{}, fmt.Errorf("position must not be negative: %w", ErrInvalidRequest)
		}
		position = *in.Position
	}
	f, err := a.service.AddFilter(ctx, app.AddFilterInput{
		SubscriptionID: subscriptionID,
		Text:           in.Text,
		Disabled:       in.Disabled,
		Position:       position,
	})
	if err != nil {
		return Filter{}, mapAppError("add filter", err)
	}
	return mapFilter(f, f.Position), nil
}

// UpdateFilter changes a filter's text, disabled flag, or both.
func (a *AppServiceAdapter) UpdateFilter(ctx context.Context, in UpdateFilterRequest) (Filter, error) {
	if err := a.ready(); err != nil {
		return Filter{}, err
	}
	filterID, err := requireID("filter_id", in.FilterID)
	if err != nil {
		return Filter{}, err
	}
	if in.Text == nil && in.Disabled == nil {
		return Filter{}, fmt.Errorf("text or disabled is required: %w", ErrInvalidRequest)
	}
	var f domain.Filter
	if in.Text != nil {
		if f, err = a.service.UpdateFilterText(ctx, filterID, *in.Text); err != nil {
			return Filter{}, mapAppError("update filter text", err)
		}
	}
	if in.Disabled != nil {
		if f, err = a.service.SetFilterDisabled(ctx, filterID, *in.Disabled); err != nil {
			return Filter{}, mapAppError("set filter disabled", err)
		}
	}
	return mapFilter(f, f.Position), nil
}

// MoveFilter moves one filter after checking its claimed index.
func (a *AppServiceAdapter) MoveFilter(ctx context.Context, in MoveFilterRequest) error {
	if err := a.ready(); err != nil {
		return err
	}
	subscriptionID, err := requireID("subscription_id", in.SubscriptionID)
	if err != nil {
		return err
	}
	filterID, err := requireID("filter_id", in.FilterID)
	if err != nil {
		return err
	}
	if err := a.service.MoveFilter(ctx, filterID, subscriptionID, in.From, in.To); err != nil {
		return mapAppError("move filter", err)
	}
	return nil
}

// RemoveFilter removes one filter after checking its claimed index.
func (a *AppServiceAdapter) RemoveFilter(ctx context.Context, in RemoveFilterRequest) error {
	if err := a.ready(); err != nil {
		return err
	}
	subscriptionID, err := requireID("subscription_id", in.SubscriptionID)
	if err != nil {
		return err
	}
	filterID, err := requireID("filter_id", in.FilterID)
	if err != nil {
		return err
	}
	if err := a.service.RemoveFilter(ctx, filterID, subscriptionID, in.Index); err != nil {
		return mapAppError("remove filter", err)
	}
	return nil
}

// RenameSubscription retitles one subscription.
func (a *AppServiceAdapter) RenameSubscription(ctx context.Context, in RenameSubscriptionRequest) (Subscription, error) {
	if err := a.ready(); err != nil {
		return Subscription{}, err
	}
	subscriptionID, err := requireID("subscription_id", in.SubscriptionID)
	if err != nil {
		return Subscription{}, err
	}
	sub, err := a.service.RenameSubscription(ctx, subscriptionID, in.Title)
	if err != nil {
		return Subscription{}, mapAppError("rename subscription", err)
	}
	return mapSubscription(sub), nil
}

// RecordHits adds reported matches to one filter's statistics.
func (a *AppServiceAdapter) RecordHits(ctx context.Context, in RecordHitsRequest) (Filter, error) {
	if err := a.ready(); err != nil {
		return Filter{}, err
	}
	filterID, err := requireID("filter_id", in.FilterID)
	if err != nil {
		return Filter{}, err
	}
	count := in.Count
	if count == 0 {
		count = 1
	}
	f, err := a.service.RecordFilterHits(ctx, filterID, count)
	if err != nil {
		return Filter{}, mapAppError("record hits", err)
	}
	return mapFilter(f, f.Position), nil
}

// ready reports whether the adapter has a backing service.
func (a *AppServiceAdapter) ready() error {
	if a == nil || a.service == nil {
		return errors.New("app service adapter is not configured")
	}
	return nil
}

// requireID trims one identifier and rejects blanks.
func requireID(name, value string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", fmt.Errorf("%s is required: %w", name, ErrInvalidRequest)
	}
	return value, nil
}

// mapSubscription converts one domain subscription.
func mapSubscription(sub domain.Subscription) Subscription {
	return Subscription{
		ID:        sub.ID,
		Title:     sub.Title,
		URL:       sub.URL,
		Kind:      string(sub.Kind),
		Editable:  sub.Editable(),
		Disabled:  sub.Disabled,
		CreatedAt: sub.CreatedAt,
		UpdatedAt: sub.UpdatedAt,
	}
}

// mapFilter converts one domain filter shown at index.
func mapFilter(f domain.Filter, index int) Filter {
	return Filter{
		ID:             f.ID,
		SubscriptionID: f.SubscriptionID,
		Index:          index,
		Text:           f.Text,
		Disabled:       f.Disabled,
		Slow:           f.Slow(),
		HitCount:       f.HitCount,
		LastHitAt:      f.LastHitAt,
	}
}

// mapAppError maps app/domain errors onto transport sentinels, keeping the original cause.
func mapAppError(operation string, err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, app.ErrNotFound):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrNotFound, err))
	case errors.Is(err, app.ErrReadOnly):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrReadOnly, err))
	case errors.Is(err, app.ErrIndexMismatch):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrConflict, err))
	case errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidText),
		errors.Is(err, domain.ErrInvalidPosition),
		errors.Is(err, domain.ErrInvalidKind),
		errors.Is(err, app.ErrInvalidHitCount):
		return fmt.Errorf("%s: %w", operation, errors.Join(ErrInvalidRequest, err))
	default:
		return fmt.Errorf("%s: %w", operation, err)
	}
}
