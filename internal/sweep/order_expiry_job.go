package sweep

import (
	"context"
	"time"
)

// orderExpirer is the slice of the order service the job depends on.
type orderExpirer interface {
	ExpireStaleOrders(ctx context.Context, cutoff time.Time) (int, error)
}

// OrderExpiryJob cancels pending recharge orders whose TTL lapsed.
type OrderExpiryJob struct {
	orders orderExpirer
	now    func() time.Time
}

// NewOrderExpiryJob builds the order expiry sweep.
func NewOrderExpiryJob(orders orderExpirer) *OrderExpiryJob {
	return &OrderExpiryJob{orders: orders, now: time.Now}
}

func (j *OrderExpiryJob) Name() string { return "order_expiry" }

func (j *OrderExpiryJob) Run(ctx context.Context) (int, error) {
	return j.orders.ExpireStaleOrders(ctx, j.now().UTC())
}
