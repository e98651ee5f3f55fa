package orders

import (
	"context"
	"time"

	"github.com/orderdesk/orderdesk/internal/domain"
)

// Store is the persistence port the order domain depends on. All write
// operations are transactional at the order+items granularity: an order row
// and its item rows commit or roll back together.
//
// Lookups return (nil, nil) when no order matches; callers decide whether
// that is a 404 or a no-op.
type Store interface {
	// Save inserts the order when it has no id yet, assigning id, the
	// order_date default and last_updated, and updates all mutable fields
	// otherwise. On update the item set is replaced wholesale.
	Save(ctx context.Context, order *domain.Order) error
	// Delete removes the order and cascades to its items. Deleting an
	// absent id is not an error.
	Delete(ctx context.Context, id int64) error
	// DeleteAll removes every order and all items. Administrative reset.
	DeleteAll(ctx context.Context) error
	Get(ctx context.Context, id int64) (*domain.Order, error)
	List(ctx context.Context) ([]domain.Order, error)
	ListByStatus(ctx context.Context, status domain.OrderStatus) ([]domain.Order, error)
	// ListSince returns orders whose order_date falls on or after the given
	// calendar date. Time of day is ignored on both sides.
	ListSince(ctx context.Context, since time.Time) ([]domain.Order, error)
}
