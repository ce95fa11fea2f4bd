package app

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/evanschultz/filterdeck/internal/domain"
	"github.com/evanschultz/filterdeck/internal/filterlist"
)

// DefaultSubscriptionTitle names the user subscription created on first start.
const DefaultSubscriptionTitle = "My filters"

// IDGenerator returns unique identifiers for new entities.
type IDGenerator func() string

// Clock returns the current time.
type Clock func() time.Time

// Service represents service data used by this package.
type Service struct {
	repo  Repository
	idGen IDGenerator
	clock Clock
}

// NewService constructs a new value for this package.
func NewService(repo Repository, idGen IDGenerator, clock Clock) *Service {
	if idGen == nil {
		idGen = func() string { return "" }
	}
	if clock == nil {
		clock = time.Now
	}
	return &Service{
		repo:  repo,
		idGen: idGen,
		clock: clock,
	}
}

// EnsureDefaultSubscription ensures at least one editable subscription exists.
func (s *Service) EnsureDefaultSubscription(ctx context.Context) (domain.Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return domain.Subscription{}, err
	}
	for _, sub := range subs {
		if sub.Editable() {
			return sub, nil
		}
	}
	return s.CreateSubscription(ctx, CreateSubscriptionInput{Title: DefaultSubscriptionTitle})
}

// CreateSubscriptionInput holds input values for create subscription operations.
type CreateSubscriptionInput struct {
	Title string
	URL   string
	Kind  domain.SubscriptionKind
}

// CreateSubscription creates subscription.
func (s *Service) CreateSubscription(ctx context.Context, in CreateSubscriptionInput) (domain.Subscription, error) {
	sub, err := domain.NewSubscription(s.idGen(), in.Title, in.URL, in.Kind, s.clock())
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// GetSubscription returns subscription.
func (s *Service) GetSubscription(ctx context.Context, id string) (domain.Subscription, error) {
	return s.repo.GetSubscription(ctx, id)
}

// RenameSubscription changes a subscription's title. Downloaded subscriptions may be renamed too.
func (s *Service) RenameSubscription(ctx context.Context, id, title string) (domain.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if err := sub.Rename(title, s.clock()); err != nil {
		return domain.Subscription{}, err
	}
	if err := s.repo.UpdateSubscription(ctx, sub); err != nil {
		return domain.Subscription{}, err
	}
	return sub, nil
}

// ListSubscriptions lists subscriptions, user-owned first.
func (s *Service) ListSubscriptions(ctx context.Context) ([]domain.Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(subs, func(a, b domain.Subscription) int {
		if a.Editable() == b.Editable() {
			return a.CreatedAt.Compare(b.CreatedAt)
		}
		if a.Editable() {
			return -1
		}
		return 1
	})
	return subs, nil
}

// ListFilters lists filters in stored order.
func (s *Service) ListFilters(ctx context.Context, subscriptionID string) ([]domain.Filter, error) {
	filters, err := s.repo.ListFilters(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(filters, func(a, b domain.Filter) int {
		return a.Position - b.Position
	})
	return filters, nil
}

// AddFilterInput holds input values for add filter operations.
type AddFilterInput struct {
	SubscriptionID string
	Text           string
	Disabled       bool
	// Position is clamped to the list; negative appends.
	Position int
}

// AddFilter inserts a filter into an editable subscription.
func (s *Service) AddFilter(ctx context.Context, in AddFilterInput) (domain.Filter, error) {
	if _, err := s.editableSubscription(ctx, in.SubscriptionID); err != nil {
		return domain.Filter{}, err
	}
	filters, err := s.repo.ListFilters(ctx, in.SubscriptionID)
	if err != nil {
		return domain.Filter{}, err
	}
	position := in.Position
	if position < 0 || position > len(filters) {
		position = len(filters)
	}
	filter, err := domain.NewFilter(domain.FilterInput{
		ID:             s.idGen(),
		SubscriptionID: in.SubscriptionID,
		Text:           in.Text,
		Disabled:       in.Disabled,
		Position:       position,
	}, s.clock())
	if err != nil {
		return domain.Filter{}, err
	}
	if err := s.repo.InsertFilter(ctx, filter); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

// UpdateFilterText replaces a filter's rule text.
func (s *Service) UpdateFilterText(ctx context.Context, filterID, text string) (domain.Filter, error) {
	filter, err := s.repo.GetFilter(ctx, filterID)
	if err != nil {
		return domain.Filter{}, err
	}
	if _, err := s.editableSubscription(ctx, filter.SubscriptionID); err != nil {
		return domain.Filter{}, err
	}
	if err := filter.SetText(text, s.clock()); err != nil {
		return domain.Filter{}, err
	}
	if err := s.repo.UpdateFilter(ctx, filter); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

// SetFilterDisabled enables or disables a filter. Downloaded subscriptions allow this too.
func (s *Service) SetFilterDisabled(ctx context.Context, filterID string, disabled bool) (domain.Filter, error) {
	filter, err := s.repo.GetFilter(ctx, filterID)
	if err != nil {
		return domain.Filter{}, err
	}
	if filter.Disabled == disabled {
		return filter, nil
	}
	filter.SetDisabled(disabled, s.clock())
	if err := s.repo.UpdateFilter(ctx, filter); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

// RecordFilterHits adds count matches to a filter's statistics. Downloaded subscriptions count hits too.
func (s *Service) RecordFilterHits(ctx context.Context, filterID string, count int) (domain.Filter, error) {
	if count < 1 {
		return domain.Filter{}, fmt.Errorf("%w: hit count %d", ErrInvalidHitCount, count)
	}
	filter, err := s.repo.GetFilter(ctx, filterID)
	if err != nil {
		return domain.Filter{}, err
	}
	now := s.clock()
	for range count {
		filter.RecordHit(now)
	}
	if err := s.repo.UpdateFilter(ctx, filter); err != nil {
		return domain.Filter{}, err
	}
	return filter, nil
}

// MoveFilter moves the filter found at index from to index to.
func (s *Service) MoveFilter(ctx context.Context, filterID, subscriptionID string, from, to int) error {
	filter, count, err := s.locateFilter(ctx, filterID, subscriptionID, from)
	if err != nil {
		return err
	}
	if to < 0 || to >= count {
		return fmt.Errorf("%w: move target %d outside [0,%d)", domain.ErrInvalidPosition, to, count)
	}
	if from == to {
		return nil
	}
	return s.repo.MoveFilter(ctx, filter.ID, to)
}

// RemoveFilter removes the filter found at index.
func (s *Service) RemoveFilter(ctx context.Context, filterID, subscriptionID string, index int) error {
	filter, _, err := s.locateFilter(ctx, filterID, subscriptionID, index)
	if err != nil {
		return err
	}
	return s.repo.DeleteFilter(ctx, filter.ID)
}

// ListChangeEvents lists the newest activity for a subscription.
func (s *Service) ListChangeEvents(ctx context.Context, subscriptionID string, limit int) ([]domain.ChangeEvent, error) {
	return s.repo.ListChangeEvents(ctx, subscriptionID, limit)
}

// ImportFilters appends parsed rules to an editable subscription and returns how many were added.
func (s *Service) ImportFilters(ctx context.Context, subscriptionID string, rules []filterlist.Rule) (int, error) {
	added := 0
	for _, rule := range rules {
		if _, err := s.AddFilter(ctx, AddFilterInput{
			SubscriptionID: subscriptionID,
			Text:           rule.Text,
			Disabled:       rule.Disabled,
			Position:       -1,
		}); err != nil {
			return added, fmt.Errorf("import rule %q: %w", rule.Text, err)
		}
		added++
	}
	return added, nil
}

// ExportFilters returns a subscription's filters as list rules in stored order.
func (s *Service) ExportFilters(ctx context.Context, subscriptionID string) ([]filterlist.Rule, error) {
	filters, err := s.ListFilters(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	out := make([]filterlist.Rule, 0, len(filters))
	for _, f := range filters {
		out = append(out, filterlist.Rule{Text: f.Text, Disabled: f.Disabled})
	}
	return out, nil
}

// editableSubscription loads a subscription and rejects read-only ones.
func (s *Service) editableSubscription(ctx context.Context, subscriptionID string) (domain.Subscription, error) {
	sub, err := s.repo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return domain.Subscription{}, err
	}
	if !sub.Editable() {
		return domain.Subscription{}, ErrReadOnly
	}
	return sub, nil
}

// locateFilter verifies that a filter sits at the claimed index of an editable subscription.
func (s *Service) locateFilter(ctx context.Context, filterID, subscriptionID string, index int) (domain.Filter, int, error) {
	if _, err := s.editableSubscription(ctx, subscriptionID); err != nil {
		return domain.Filter{}, 0, err
	}
	filters, err := s.ListFilters(ctx, subscriptionID)
	if err != nil {
		return domain.Filter{}, 0, err
	}
	if index < 0 || index >= len(filters) {
		return domain.Filter{}, 0, fmt.Errorf("%w: index %d outside [0,%d)", ErrIndexMismatch, index, len(filters))
	}
	if filters[index].ID != filterID {
		return domain.Filter{}, 0, fmt.Errorf("%w: %s is not at %d", ErrIndexMismatch, filterID, index)
	}
	return filters[index], len(filters), nil
}
