package app

import (
	"context"

	"github.com/evanschultz/filterdeck/internal/domain"
)

// Repository represents repository data used by this package.
type Repository interface {
	CreateSubscription(context.Context, domain.Subscription) error
	UpdateSubscription(context.Context, domain.Subscription) error
	GetSubscription(context.Context, string) (domain.Subscription, error)
	ListSubscriptions(context.Context) ([]domain.Subscription, error)

	// InsertFilter stores f at f.Position and shifts later filters down by one.
	InsertFilter(context.Context, domain.Filter) error
	// UpdateFilter persists everything except the position.
	UpdateFilter(context.Context, domain.Filter) error
	GetFilter(context.Context, string) (domain.Filter, error)
	ListFilters(context.Context, string) ([]domain.Filter, error)
	// MoveFilter relocates one filter to a new position, shifting the filters in between.
	MoveFilter(context.Context, string, int) error
	// DeleteFilter removes one filter and closes the gap it leaves.
	DeleteFilter(context.Context, string) error
	ListChangeEvents(context.Context, string, int) ([]domain.ChangeEvent, error)
}
