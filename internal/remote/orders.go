package remote

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/utafrali/GameStoreGo/internal/domain"
)

// OrderClient places and lists the signed-in user's orders.
type OrderClient struct{ c *Client }

// Checkout turns the server-side cart into an order. The backend moves the
// purchased games into the library and empties the cart.
func (r *OrderClient) Checkout(ctx context.Context) (*domain.Order, error) {
	var w orderWire
	if err := r.c.call(ctx, "orders.checkout", http.MethodPost, "/orders/checkout", nil, &w); err != nil {
		return nil, err
	}
	o := w.order()
	r.c.logger.InfoContext(ctx, "order placed",
		slog.String("order_id", o.ID),
		slog.Int("item_count", len(o.Items)),
		slog.Float64("total_amount", o.TotalAmount),
	)
	return &o, nil
}

// List returns the order history, newest first as the backend sends it.
func (r *OrderClient) List(ctx context.Context) ([]domain.Order, error) {
	var ws []orderWire
	if err := r.c.call(ctx, "orders.list", http.MethodGet, "/orders/my-orders", nil, &ws); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(ws))
	for _, w := range ws {
		out = append(out, w.order())
	}
	return out, nil
}
